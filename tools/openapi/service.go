package openapi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/types"
)

// Entry is the translation of one plugin record. It is never persisted.
type Entry struct {
	PluginID string
	// Document is nil when the plugin content could not be parsed.
	Document *Document
	Length   int
	Tools    []types.FunctionTool
	Funcs    map[string]types.ToolFunc
	// Err holds the parse error, if any.
	Err error
}

func newEntry(pluginID string) *Entry {
	return &Entry{
		PluginID: pluginID,
		Tools:    make([]types.FunctionTool, 0),
		Funcs:    make(map[string]types.ToolFunc),
	}
}

// Service caches translation entries by plugin id. Entries live until they
// are replaced or removed; there is no eviction.
type Service struct {
	generator *Generator
	entries   map[string]*Entry
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewService creates a translation cache backed by generator.
func NewService(generator *Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator: generator,
		entries:   make(map[string]*Entry),
		logger:    logger.With(zap.String("component", "openapi_service")),
	}
}

// Add returns the cached entry for plugin, translating it first when no entry
// exists or replace is set.
//
// Without replace, an entry stored while this call was translating wins: the
// caller may hold an older record than the one that produced it.
func (s *Service) Add(plugin types.Plugin, replace bool) *Entry {
	if !replace {
		s.mu.RLock()
		entry, ok := s.entries[plugin.ID]
		s.mu.RUnlock()
		if ok {
			return entry
		}
	}

	entry := s.generator.Generate(plugin)

	s.mu.Lock()
	if !replace {
		if cached, ok := s.entries[plugin.ID]; ok {
			s.mu.Unlock()
			return cached
		}
	}
	s.entries[plugin.ID] = entry
	s.mu.Unlock()

	s.logger.Debug("translation cached",
		zap.String("plugin", plugin.ID),
		zap.Bool("replace", replace),
		zap.Int("operations", entry.Length))
	return entry
}

// Get returns the cached entry for id.
func (s *Service) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// Remove drops the cached entry for id and reports whether one existed.
func (s *Service) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// Len returns the number of cached entries.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
