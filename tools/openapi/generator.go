package openapi

import (
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/internal/tlsutil"
	"github.com/BaSui01/plugstore/types"
)

// HeaderBaseURL carries the real server URL on proxied requests.
const HeaderBaseURL = "X-Base-URL"

// fallbackParameters is used when a parameter schema cannot be serialized,
// so every operation still yields a descriptor.
var fallbackParameters = []byte(`{"type":"object","properties":{},"required":[]}`)

// Observer receives translation and invocation outcomes.
type Observer interface {
	RecordTranslation(pluginID string, operations int, err error)
	RecordInvocation(pluginID, operation string, status int, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) RecordTranslation(string, int, error)                          {}
func (nopObserver) RecordInvocation(string, string, int, time.Duration, error) {}

// Config configures how plugins are translated and invoked.
type Config struct {
	// ProxyURL is the absolute URL of the local forwarding proxy used by
	// plugins with UsingProxy set.
	ProxyURL string `yaml:"proxy_url" json:"proxy_url"`
	// Timeout bounds each outbound call. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// NormalizeBearer sends "Bearer <token>" instead of " Bearer <token>".
	NormalizeBearer bool `yaml:"normalize_bearer" json:"normalize_bearer"`
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64 `yaml:"max_response_bytes" json:"max_response_bytes"`
}

// DefaultConfig returns the default translation config.
func DefaultConfig() Config {
	return Config{
		ProxyURL:         "http://127.0.0.1:8080/api/proxy",
		MaxResponseBytes: 10 << 20,
	}
}

// Option customizes a Generator.
type Option func(*Generator)

// WithHTTPClient replaces the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithObserver reports translations and invocations to o.
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		if o != nil {
			g.observer = o
		}
	}
}

// WithTracer replaces the tracer used for invocation spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

// Generator turns plugin records into function descriptors and dispatchers.
type Generator struct {
	httpClient *http.Client
	cfg        Config
	observer   Observer
	tracer     trace.Tracer
	logger     *zap.Logger
	bearerOnce sync.Once
}

// NewGenerator creates a new Generator.
func NewGenerator(cfg Config, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultConfig().MaxResponseBytes
	}
	g := &Generator{
		httpClient: tlsutil.SecureHTTPClient(cfg.Timeout),
		cfg:        cfg,
		observer:   nopObserver{},
		tracer:     otel.Tracer("plugstore/openapi"),
		logger:     logger.With(zap.String("component", "openapi_generator")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// target is where a plugin's requests are sent.
type target struct {
	baseURL   string
	serverURL string
	proxied   bool
}

// Generate translates plugin into an Entry. A description that cannot be
// parsed yields an entry with no operations and Err set.
func (g *Generator) Generate(plugin types.Plugin) *Entry {
	entry := newEntry(plugin.ID)

	doc, err := ParseDocument([]byte(plugin.Content))
	if err != nil {
		entry.Err = err
		g.logger.Warn("failed to parse plugin API description",
			zap.String("plugin", plugin.ID),
			zap.Error(err))
		g.observer.RecordTranslation(plugin.ID, 0, err)
		return entry
	}

	t := target{baseURL: doc.ServerURL, serverURL: doc.ServerURL}
	if plugin.UsingProxy {
		t.baseURL = g.cfg.ProxyURL
		t.proxied = true
	}

	cred := CredentialFor(plugin, g.cfg.NormalizeBearer)
	if plugin.AuthType == types.AuthTypeBearer && !g.cfg.NormalizeBearer && !cred.IsZero() {
		g.bearerOnce.Do(func() {
			g.logger.Warn("bearer credentials are sent as \" Bearer <token>\"; enable normalize_bearer for the canonical form",
				zap.String("plugin", plugin.ID))
		})
	}

	entry.Document = doc
	entry.Length = len(doc.Operations)
	for _, op := range doc.Operations {
		entry.Tools = append(entry.Tools, g.operationToTool(plugin.ID, op))
		inv := &invocation{
			gen:      g,
			pluginID: plugin.ID,
			op:       op,
			target:   t,
			cred:     cred,
			wrapBody: wrapsBody(requestBodySchema(op)),
		}
		if cred.Location == types.AuthLocationBody && !cred.IsZero() &&
			(inv.wrapBody || !methodCarriesBody(op.Method)) {
			g.logger.Warn("body credential cannot be sent with this operation",
				zap.String("plugin", plugin.ID),
				zap.String("operation", op.Name),
				zap.String("method", op.Method))
		}
		entry.Funcs[op.Name] = inv.call
	}

	g.observer.RecordTranslation(plugin.ID, entry.Length, nil)
	g.logger.Debug("generated tools",
		zap.String("plugin", plugin.ID),
		zap.Int("count", entry.Length))
	return entry
}

func (g *Generator) operationToTool(pluginID string, op Operation) types.FunctionTool {
	params, err := parameterSchema(op).ParametersJSON()
	if err != nil {
		g.logger.Warn("falling back to empty parameter schema",
			zap.String("plugin", pluginID),
			zap.String("operation", op.Name),
			zap.Error(err))
		params = append([]byte(nil), fallbackParameters...)
	}
	return types.NewFunctionTool(op.Name, op.ToolDescription(), params)
}
