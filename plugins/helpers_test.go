package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/plugstore/persistence"
	"github.com/BaSui01/plugstore/tools/openapi"
)

// apiDocument describes a server at serverURL with one POST operation per name.
func apiDocument(title, version, serverURL string, operations ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "openapi: 3.0.0\ninfo:\n  title: %s\n  version: %s\nservers:\n  - url: %s\npaths:\n", title, version, serverURL)
	for _, op := range operations {
		fmt.Fprintf(&b, "  /%s:\n    post:\n      operationId: %s\n      responses:\n        '200':\n          description: ok\n", op, op)
	}
	return b.String()
}

func newTestService() *openapi.Service {
	return openapi.NewService(openapi.NewGenerator(openapi.DefaultConfig(), nil), nil)
}

func newTestRegistry(t *testing.T, store persistence.Store, cfg Config, opts ...Option) (*Registry, *openapi.Service) {
	t.Helper()
	if store == nil {
		store = persistence.NewMemoryStore()
	}
	svc := newTestService()
	r := NewRegistry(store, svc, cfg, zaptest.NewLogger(t), opts...)
	require.NoError(t, r.Rehydrate(context.Background()))
	return r, svc
}

// failingStore fails every write once armed.
type failingStore struct {
	*persistence.MemoryStore
	mu   sync.Mutex
	fail bool
}

func (s *failingStore) arm() {
	s.mu.Lock()
	s.fail = true
	s.mu.Unlock()
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type fakeMetrics struct {
	mu         sync.Mutex
	builtin    int
	custom     int
	forgotten  []string
	hits       int
	misses     int
	seedEvents map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{seedEvents: make(map[string]int)}
}

func (m *fakeMetrics) SetPluginsRegistered(builtin, custom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builtin, m.custom = builtin, custom
}

func (m *fakeMetrics) ForgetPlugin(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgotten = append(m.forgotten, id)
}

func (m *fakeMetrics) RecordCacheHit(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *fakeMetrics) RecordCacheMiss(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func (m *fakeMetrics) RecordSeedEntry(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seedEvents[outcome]++
}
