package plugins

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/persistence"
	"github.com/BaSui01/plugstore/tools/openapi"
	"github.com/BaSui01/plugstore/types"
)

// DefaultStoreKey is the key the registry document is persisted under.
const DefaultStoreKey = "chat-next-web-plugin"

// Sentinel errors for the plugin registry.
var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrInvalidPlugin  = errors.New("invalid plugin")
)

// Config controls registry persistence and cache behavior.
type Config struct {
	// StoreKey defaults to DefaultStoreKey.
	StoreKey string
	// PurgeCacheOnDelete drops the cached translation when a plugin is deleted.
	PurgeCacheOnDelete bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics reports registry events to m.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides the time source used for lastUpdateTime.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry holds plugin records keyed by id. Every mutation rewrites the
// whole state document in the store.
type Registry struct {
	store   persistence.Store
	service *openapi.Service
	config  Config

	plugins    map[string]types.Plugin
	lastUpdate int64
	mu         sync.RWMutex

	metrics Metrics
	now     func() time.Time
	logger  *zap.Logger
}

// NewRegistry creates a registry holding the default state. Call Rehydrate to
// load what the store holds.
func NewRegistry(store persistence.Store, service *openapi.Service, cfg Config, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StoreKey == "" {
		cfg.StoreKey = DefaultStoreKey
	}
	r := &Registry{
		store:   store,
		service: service,
		config:  cfg,
		plugins: DefaultPlugins(),
		metrics: nopMetrics{},
		now:     time.Now,
		logger:  logger.With(zap.String("component", "plugin_registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.reportCounts()
	return r
}

// Rehydrate replaces the in-memory state with the persisted document. A
// missing document restores the default state.
func (r *Registry) Rehydrate(ctx context.Context) error {
	data, err := r.store.Get(ctx, r.config.StoreKey)
	if errors.Is(err, persistence.ErrNotFound) {
		r.mu.Lock()
		r.plugins = DefaultPlugins()
		r.lastUpdate = 0
		r.mu.Unlock()
		r.reportCounts()
		r.logger.Info("no persisted plugin state, using defaults", zap.Int("plugins", r.Len()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load plugin state: %w", err)
	}

	st, err := decodeState(data)
	if err != nil {
		return err
	}
	if st.Version != StateVersion {
		r.logger.Warn("unexpected plugin state version",
			zap.Int("version", st.Version),
			zap.Int("expected", StateVersion))
	}

	r.mu.Lock()
	r.plugins = st.State.Plugins
	r.lastUpdate = st.State.LastUpdateTime
	r.mu.Unlock()
	r.reportCounts()

	r.logger.Info("plugin state rehydrated",
		zap.Int("plugins", len(st.State.Plugins)),
		zap.Int64("last_update", st.State.LastUpdateTime))
	return nil
}

// Create merges partial over a fresh record, stores it as a user plugin and
// returns the stored record. An existing record with the same id is replaced
// along with its cached translation.
func (r *Registry) Create(ctx context.Context, partial types.Plugin) (types.Plugin, error) {
	record, _, err := r.create(ctx, partial, false)
	return record, err
}

// createBuiltin stores partial as a builtin record unless its id is already
// registered, in which case it reports false and changes nothing.
func (r *Registry) createBuiltin(ctx context.Context, partial types.Plugin) (types.Plugin, bool, error) {
	return r.create(ctx, partial, true)
}

func (r *Registry) create(ctx context.Context, partial types.Plugin, builtin bool) (types.Plugin, bool, error) {
	record := types.NewEmptyPlugin()
	if err := copier.CopyWithOption(&record, &partial, copier.Option{IgnoreEmpty: true}); err != nil {
		return types.Plugin{}, false, fmt.Errorf("failed to merge plugin defaults: %w", err)
	}
	record.Builtin = builtin
	if !record.Valid() {
		return types.Plugin{}, false, fmt.Errorf("%w: auth type %q, location %q", ErrInvalidPlugin, record.AuthType, record.AuthLocation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.plugins[record.ID]
	if existed && builtin {
		return prev, false, nil
	}
	// a deleted record with the same id may have left its translation behind;
	// builtin records are translated up front
	_, cached := r.service.Get(record.ID)
	if existed || cached || builtin {
		r.service.Add(record, true)
	}
	r.plugins[record.ID] = record
	if err := r.persistLocked(ctx); err != nil {
		switch {
		case existed:
			r.plugins[record.ID] = prev
			r.service.Add(prev, true)
		default:
			delete(r.plugins, record.ID)
			if cached || builtin {
				r.service.Remove(record.ID)
			}
		}
		return types.Plugin{}, false, err
	}

	r.logger.Info("plugin created",
		zap.String("id", record.ID),
		zap.String("title", record.Title),
		zap.Bool("builtin", builtin))
	r.reportCountsLocked()
	return record, true, nil
}

// Update applies fn to a copy of the record, re-translates it and persists
// the result.
func (r *Registry) Update(ctx context.Context, id string, fn func(*types.Plugin)) (types.Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.plugins[id]
	if !ok {
		return types.Plugin{}, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}

	updated := prev
	fn(&updated)
	updated.ID = id
	if !updated.Valid() {
		return types.Plugin{}, fmt.Errorf("%w: auth type %q, location %q", ErrInvalidPlugin, updated.AuthType, updated.AuthLocation)
	}

	r.service.Add(updated, true)
	r.plugins[id] = updated
	if err := r.persistLocked(ctx); err != nil {
		r.plugins[id] = prev
		r.service.Add(prev, true)
		return types.Plugin{}, err
	}

	r.logger.Info("plugin updated", zap.String("id", id))
	r.reportCountsLocked()
	return updated, nil
}

// Delete removes the record. The cached translation is kept unless
// PurgeCacheOnDelete is set.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.plugins[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	delete(r.plugins, id)
	if err := r.persistLocked(ctx); err != nil {
		r.plugins[id] = prev
		return err
	}

	if r.config.PurgeCacheOnDelete {
		r.service.Remove(id)
		r.metrics.ForgetPlugin(id)
	}
	r.logger.Info("plugin deleted", zap.String("id", id))
	r.reportCountsLocked()
	return nil
}

// Get returns the record for id.
func (r *Registry) Get(id string) (types.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// GetAll returns every record, newest first.
func (r *Registry) GetAll() []types.Plugin {
	r.mu.RLock()
	result := make([]types.Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		result = append(result, p)
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// LastUpdateTime returns the unix millisecond time of the last persisted mutation.
func (r *Registry) LastUpdateTime() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastUpdate
}

// GetAsTools merges the tools of the given plugins in ids order. Unknown ids
// are skipped and a later dispatcher replaces an earlier one of the same name.
func (r *Registry) GetAsTools(ids []string) types.ToolSet {
	set := types.NewToolSet()
	for _, id := range ids {
		p, ok := r.Get(id)
		if !ok {
			continue
		}
		if _, cached := r.service.Get(id); cached {
			r.metrics.RecordCacheHit(cacheType)
		} else {
			r.metrics.RecordCacheMiss(cacheType)
		}
		entry := r.service.Add(p, false)
		set.Tools = append(set.Tools, entry.Tools...)
		for name, fn := range entry.Funcs {
			set.Funcs[name] = fn
		}
	}
	return set
}

// Entry returns the translation of the plugin with id, deriving it if needed.
func (r *Registry) Entry(id string) (*openapi.Entry, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return r.service.Add(p, false), nil
}

// Ping checks the backing store.
func (r *Registry) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Registry) persistLocked(ctx context.Context) error {
	stamp := r.now().UnixMilli()
	data, err := encodeState(r.plugins, stamp)
	if err != nil {
		return fmt.Errorf("failed to encode plugin state: %w", err)
	}
	if err := r.store.Set(ctx, r.config.StoreKey, data); err != nil {
		r.logger.Error("failed to persist plugin state", zap.Error(err))
		return types.NewError(types.ErrStorage, "failed to persist plugin state").WithCause(err)
	}
	r.lastUpdate = stamp
	return nil
}

func (r *Registry) reportCounts() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.reportCountsLocked()
}

func (r *Registry) reportCountsLocked() {
	var builtin, custom int
	for _, p := range r.plugins {
		if p.Builtin {
			builtin++
		} else {
			custom++
		}
	}
	r.metrics.SetPluginsRegistered(builtin, custom)
}
