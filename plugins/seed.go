package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/plugstore/tools/openapi"
	"github.com/BaSui01/plugstore/types"
)

// ManifestEntry is one item of the seeding manifest. Plugin fields present in
// the item are carried into the created record.
type ManifestEntry struct {
	types.Plugin
	// Schema is the URL of the API description, relative to the manifest.
	Schema string `json:"schema"`
}

// SeedConfig configures a Seeder.
type SeedConfig struct {
	ManifestURL string
	// Concurrency bounds parallel schema fetches; <= 0 means 8.
	Concurrency int
	// MaxBodyBytes bounds each fetched body; <= 0 means 10 MiB.
	MaxBodyBytes int64
}

// SeedResult counts what a seeding run did.
type SeedResult struct {
	Added   int
	Skipped int
	Failed  int
}

// Seeder creates builtin plugins from a remote manifest.
type Seeder struct {
	registry *Registry
	client   *http.Client
	config   SeedConfig
	manifest *url.URL
	logger   *zap.Logger
}

// NewSeeder validates the manifest URL. A nil client uses http.DefaultClient.
func NewSeeder(registry *Registry, client *http.Client, cfg SeedConfig, logger *zap.Logger) (*Seeder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = http.DefaultClient
	}
	u, err := url.Parse(cfg.ManifestURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("invalid manifest url %q", cfg.ManifestURL)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	return &Seeder{
		registry: registry,
		client:   client,
		config:   cfg,
		manifest: u,
		logger:   logger.With(zap.String("component", "plugin_seeder")),
	}, nil
}

var errSeedIDTaken = errors.New("plugin id registered while seeding")

type seedCandidate struct {
	entry   ManifestEntry
	content string
	err     error
}

// Seed fetches the manifest and creates a builtin record for every entry not
// already registered. Only a manifest failure is returned; failed entries are
// logged and dropped.
func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult
	start := time.Now()

	body, err := s.fetch(ctx, s.manifest)
	if err != nil {
		s.logger.Warn("failed to fetch plugin manifest", zap.String("url", s.manifest.String()), zap.Error(err))
		return result, fmt.Errorf("fetch manifest: %w", err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		s.logger.Warn("failed to decode plugin manifest", zap.Error(err))
		return result, fmt.Errorf("decode manifest: %w", err)
	}

	candidates := make([]*seedCandidate, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, entry := range entries {
		if entry.ID != "" {
			if _, exists := s.registry.Get(entry.ID); exists {
				result.Skipped++
				s.registry.metrics.RecordSeedEntry(SeedSkipped)
				continue
			}
		}
		c := &seedCandidate{entry: entry}
		candidates[i] = c
		g.Go(func() error {
			c.content, c.err = s.fetchSchema(gctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	// apply in manifest order so repeated runs produce the same state
	for _, c := range candidates {
		if c == nil {
			continue
		}
		err := s.apply(ctx, c)
		if errors.Is(err, errSeedIDTaken) {
			result.Skipped++
			s.registry.metrics.RecordSeedEntry(SeedSkipped)
			continue
		}
		if err != nil {
			result.Failed++
			s.registry.metrics.RecordSeedEntry(SeedFailed)
			s.logger.Warn("dropping manifest entry",
				zap.String("id", c.entry.ID),
				zap.String("schema", c.entry.Schema),
				zap.Error(err))
			continue
		}
		result.Added++
		s.registry.metrics.RecordSeedEntry(SeedAdded)
	}

	s.logger.Info("plugin seeding finished",
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

func (s *Seeder) fetchSchema(ctx context.Context, entry ManifestEntry) (string, error) {
	if entry.Content != "" {
		return entry.Content, nil
	}
	if entry.Schema == "" {
		return "", fmt.Errorf("entry has neither schema nor content")
	}
	ref, err := url.Parse(entry.Schema)
	if err != nil {
		return "", fmt.Errorf("invalid schema url: %w", err)
	}
	body, err := s.fetch(ctx, s.manifest.ResolveReference(ref))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *Seeder) apply(ctx context.Context, c *seedCandidate) error {
	if c.err != nil {
		return c.err
	}
	if c.content == "" {
		return fmt.Errorf("empty schema body")
	}
	doc, err := openapi.ParseDocument([]byte(c.content))
	if err != nil {
		return err
	}

	partial := c.entry.Plugin
	partial.Content = c.content
	if doc.Title != "" {
		partial.Title = doc.Title
	}
	if doc.Version != "" {
		partial.Version = doc.Version
	}
	// the API is live while seeding runs, so the id may have been taken since
	// the manifest was read
	_, created, err := s.registry.createBuiltin(ctx, partial)
	if err != nil {
		return err
	}
	if !created {
		return errSeedIDTaken
	}
	return nil
}

func (s *Seeder) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.config.MaxBodyBytes {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", u, s.config.MaxBodyBytes)
	}
	return body, nil
}
