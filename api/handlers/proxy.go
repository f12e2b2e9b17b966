package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/internal/tlsutil"
	"github.com/BaSui01/plugstore/types"
)

// =============================================================================
// 🔀 Local Forwarding Proxy
// =============================================================================

// BaseURLHeader carries the real upstream origin of a proxied plugin call.
const BaseURLHeader = "X-Base-URL"

// DefaultProxyPrefix is the mount point of the proxy.
const DefaultProxyPrefix = "/api/proxy/"

// ProxyHandler forwards <prefix><rest> to X-Base-URL + /<rest>, keeping the
// method, query, body and remaining headers.
type ProxyHandler struct {
	prefix string
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

// NewProxyHandler creates the proxy. A nil transport uses tlsutil.ProxyTransport
// with responseHeaderTimeout.
func NewProxyHandler(prefix string, transport http.RoundTripper, responseHeaderTimeout time.Duration, logger *zap.Logger) *ProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = DefaultProxyPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if transport == nil {
		transport = tlsutil.ProxyTransport(responseHeaderTimeout)
	}

	h := &ProxyHandler{
		prefix: prefix,
		logger: logger.With(zap.String("component", "proxy")),
	}
	h.proxy = &httputil.ReverseProxy{
		Rewrite:      h.rewrite,
		Transport:    transport,
		ErrorHandler: h.handleError,
	}
	return h
}

// ServeHTTP validates the upstream origin before forwarding.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get(BaseURLHeader)
	if raw == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, BaseURLHeader+" header is required", h.logger)
		return
	}
	if _, err := parseBaseURL(raw); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid "+BaseURLHeader+": "+err.Error(), h.logger)
		return
	}
	if !strings.HasPrefix(r.URL.Path, h.prefix) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest, "not a proxy path", h.logger)
		return
	}

	h.logger.Debug("proxying request",
		zap.String("method", r.Method),
		zap.String("base_url", raw),
		zap.String("path", r.URL.Path))
	h.proxy.ServeHTTP(w, r)
}

func (h *ProxyHandler) rewrite(pr *httputil.ProxyRequest) {
	base, _ := parseBaseURL(pr.In.Header.Get(BaseURLHeader))

	pr.Out.URL.Path = "/" + strings.TrimPrefix(pr.In.URL.Path, h.prefix)
	pr.Out.URL.RawPath = ""
	if escaped := pr.In.URL.EscapedPath(); strings.HasPrefix(escaped, h.prefix) {
		pr.Out.URL.RawPath = "/" + strings.TrimPrefix(escaped, h.prefix)
	}
	pr.SetURL(base)
	pr.Out.Header.Del(BaseURLHeader)
}

func (h *ProxyHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := types.ErrUpstreamError
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = types.ErrUpstreamTimeout
	}
	WriteError(w, types.NewError(code, "proxy request failed").WithCause(err).WithRetryable(true), h.logger)
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return nil, errors.New("host is required")
	}
	return u, nil
}
