package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/plugstore/persistence"
	"github.com/BaSui01/plugstore/types"
)

func TestRegistry_DefaultState(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})

	all := r.GetAll()
	require.Len(t, all, 4)
	for _, p := range all {
		assert.True(t, p.Builtin, p.ID)
		assert.Equal(t, types.AuthTypeNone, p.AuthType, p.ID)
		assert.True(t, p.UsingProxy, p.ID)
	}

	expected := map[string]string{
		ChatPDFPluginID:         "ChatPDFReadRrl",
		DuckDuckGoLitePluginID:  "DuckDuckGoLiteSearch",
		ArxivSearchPluginID:     "ArxivSearch",
		CodeInterpreterPluginID: "CodeInterpreter",
	}
	for id, op := range expected {
		set := r.GetAsTools([]string{id})
		require.Len(t, set.Tools, 1, id)
		assert.Equal(t, op, set.Tools[0].Function.Name)
		assert.Contains(t, set.Funcs, op)
	}
}

func TestRegistry_Create(t *testing.T) {
	store := persistence.NewMemoryStore()
	now := time.UnixMilli(1700000000000)
	r, _ := newTestRegistry(t, store, Config{}, WithClock(func() time.Time { return now }))

	created, err := r.Create(context.Background(), types.Plugin{
		Title:    "Weather",
		Content:  apiDocument("Weather", "2.0.0", "https://weather.example", "forecast"),
		AuthType: types.AuthTypeBearer,
		Builtin:  true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.DefaultPluginVersion, created.Version)
	assert.Positive(t, created.CreatedAt)
	assert.False(t, created.Builtin, "user plugins are never builtin")
	assert.Equal(t, "Weather", created.Title)

	got, ok := r.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)
	assert.Equal(t, now.UnixMilli(), r.LastUpdateTime())

	raw, err := store.Get(context.Background(), DefaultStoreKey)
	require.NoError(t, err)
	var doc struct {
		State struct {
			Plugins        map[string]types.Plugin `json:"plugins"`
			LastUpdateTime int64                   `json:"lastUpdateTime"`
		} `json:"state"`
		Version int `json:"version"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, now.UnixMilli(), doc.State.LastUpdateTime)
	assert.Len(t, doc.State.Plugins, 5)
	assert.Equal(t, "Weather", doc.State.Plugins[created.ID].Title)
}

func TestRegistry_CreateKeepsID(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})
	created, err := r.Create(context.Background(), types.Plugin{ID: "custom-id", Version: "3.1.4"})
	require.NoError(t, err)
	assert.Equal(t, "custom-id", created.ID)
	assert.Equal(t, "3.1.4", created.Version)
}

func TestRegistry_CreateRejectsUnknownAuth(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})
	_, err := r.Create(context.Background(), types.Plugin{AuthType: "oauth"})
	assert.ErrorIs(t, err, ErrInvalidPlugin)
	_, err = r.Create(context.Background(), types.Plugin{AuthLocation: "cookie"})
	assert.ErrorIs(t, err, ErrInvalidPlugin)
	assert.Equal(t, 4, r.Len())
}

func TestRegistry_PersistFailureRollsBack(t *testing.T) {
	store := &failingStore{MemoryStore: persistence.NewMemoryStore()}
	r, svc := newTestRegistry(t, store, Config{})
	ctx := context.Background()

	existing, err := r.Create(ctx, types.Plugin{Title: "before"})
	require.NoError(t, err)
	store.arm()

	_, err = r.Create(ctx, types.Plugin{ID: "new"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrStorage))
	_, ok := r.Get("new")
	assert.False(t, ok)

	_, err = r.Update(ctx, existing.ID, func(p *types.Plugin) { p.Title = "after" })
	require.Error(t, err)
	got, _ := r.Get(existing.ID)
	assert.Equal(t, "before", got.Title)
	entry, ok := svc.Get(existing.ID)
	require.True(t, ok)
	assert.Zero(t, entry.Length)

	require.Error(t, r.Delete(ctx, existing.ID))
	_, ok = r.Get(existing.ID)
	assert.True(t, ok)
}

func TestRegistry_Update(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})
	ctx := context.Background()

	created, err := r.Create(ctx, types.Plugin{
		Content: apiDocument("v1", "1.0.0", "https://api.example", "first"),
	})
	require.NoError(t, err)

	set := r.GetAsTools([]string{created.ID})
	require.Len(t, set.Tools, 1)
	assert.Equal(t, "first", set.Tools[0].Function.Name)

	updated, err := r.Update(ctx, created.ID, func(p *types.Plugin) {
		p.Content = apiDocument("v2", "2.0.0", "https://api.example", "second", "third")
		p.ID = "ignored"
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	set = r.GetAsTools([]string{created.ID})
	require.Len(t, set.Tools, 2)
	assert.Equal(t, "second", set.Tools[0].Function.Name)
	assert.Equal(t, "third", set.Tools[1].Function.Name)
	assert.NotContains(t, set.Funcs, "first")
}

func TestRegistry_UpdateUnknown(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})
	called := false
	_, err := r.Update(context.Background(), "missing", func(*types.Plugin) { called = true })
	assert.ErrorIs(t, err, ErrPluginNotFound)
	assert.False(t, called)
}

func TestRegistry_DeleteKeepsCachedEntry(t *testing.T) {
	r, svc := newTestRegistry(t, nil, Config{})
	ctx := context.Background()

	created, err := r.Create(ctx, types.Plugin{Content: apiDocument("t", "1", "https://x.example", "op")})
	require.NoError(t, err)
	r.GetAsTools([]string{created.ID})

	require.NoError(t, r.Delete(ctx, created.ID))
	for _, p := range r.GetAll() {
		assert.NotEqual(t, created.ID, p.ID)
	}
	_, cached := svc.Get(created.ID)
	assert.True(t, cached)
	assert.Empty(t, r.GetAsTools([]string{created.ID}).Tools)

	assert.ErrorIs(t, r.Delete(ctx, created.ID), ErrPluginNotFound)
}

func TestRegistry_DeletePurgesCacheWhenConfigured(t *testing.T) {
	m := newFakeMetrics()
	r, svc := newTestRegistry(t, nil, Config{PurgeCacheOnDelete: true}, WithMetrics(m))
	ctx := context.Background()

	created, err := r.Create(ctx, types.Plugin{Content: apiDocument("t", "1", "https://x.example", "op")})
	require.NoError(t, err)
	r.GetAsTools([]string{created.ID})

	require.NoError(t, r.Delete(ctx, created.ID))
	_, cached := svc.Get(created.ID)
	assert.False(t, cached)
	assert.Equal(t, []string{created.ID}, m.forgotten)
}

func TestRegistry_GetAllNewestFirst(t *testing.T) {
	r, _ := newTestRegistry(t, persistence.NewMemoryStore(), Config{})
	ctx := context.Background()

	for i, ts := range []int64{10, 30, 20} {
		_, err := r.Create(ctx, types.Plugin{ID: string(rune('a' + i)), CreatedAt: ts})
		require.NoError(t, err)
	}
	// builtins were created now, so they sort first
	all := r.GetAll()
	require.Len(t, all, 7)
	ids := []string{all[4].ID, all[5].ID, all[6].ID}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestRegistry_GetAsTools(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})

	t.Run("nil ids", func(t *testing.T) {
		set := r.GetAsTools(nil)
		assert.NotNil(t, set.Tools)
		assert.NotNil(t, set.Funcs)
		assert.Empty(t, set.Tools)
		assert.Empty(t, set.Funcs)
	})

	t.Run("unknown ids are skipped", func(t *testing.T) {
		set := r.GetAsTools([]string{"nope", ArxivSearchPluginID})
		assert.Len(t, set.Tools, 1)
	})

	t.Run("unparsable content contributes nothing", func(t *testing.T) {
		p, err := r.Create(context.Background(), types.Plugin{Content: "not: [valid"})
		require.NoError(t, err)
		set := r.GetAsTools([]string{p.ID, ArxivSearchPluginID})
		assert.Len(t, set.Tools, 1)
	})
}

func TestRegistry_GetAsToolsLaterWins(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []string
	)
	newServer := func(name string) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			mu.Lock()
			hits = append(hits, name)
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	first, second := newServer("first"), newServer("second")

	r, _ := newTestRegistry(t, nil, Config{})
	ctx := context.Background()
	a, err := r.Create(ctx, types.Plugin{Content: apiDocument("a", "1", first.URL, "ping")})
	require.NoError(t, err)
	b, err := r.Create(ctx, types.Plugin{Content: apiDocument("b", "1", second.URL, "ping")})
	require.NoError(t, err)

	set := r.GetAsTools([]string{a.ID, b.ID})
	assert.Len(t, set.Tools, 2)
	require.Len(t, set.Funcs, 1)

	_, err = set.Funcs["ping"](ctx, map[string]any{})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second"}, hits)
}

func TestRegistry_Rehydrate(t *testing.T) {
	store := persistence.NewMemoryStore()
	ctx := context.Background()
	stamp := time.UnixMilli(1700000000123)

	first, _ := newTestRegistry(t, store, Config{StoreKey: "plugins"}, WithClock(func() time.Time { return stamp }))
	created, err := first.Create(ctx, types.Plugin{Title: "kept"})
	require.NoError(t, err)
	require.NoError(t, first.Delete(ctx, ArxivSearchPluginID))

	second, _ := newTestRegistry(t, store, Config{StoreKey: "plugins"})
	got, ok := second.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "kept", got.Title)
	_, ok = second.Get(ArxivSearchPluginID)
	assert.False(t, ok)
	assert.Equal(t, stamp.UnixMilli(), second.LastUpdateTime())
	assert.Equal(t, 4, second.Len())
}

func TestRegistry_RehydrateCorruptState(t *testing.T) {
	store := persistence.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), DefaultStoreKey, []byte("{broken")))

	r := NewRegistry(store, newTestService(), Config{}, nil)
	assert.Error(t, r.Rehydrate(context.Background()))
	assert.Equal(t, 4, r.Len(), "state is untouched on failure")
}

func TestRegistry_RehydrateUsesMapKeys(t *testing.T) {
	store := persistence.NewMemoryStore()
	doc := `{"state":{"plugins":{"real":{"id":"stale","title":"x"}},"lastUpdateTime":5},"version":1}`
	require.NoError(t, store.Set(context.Background(), DefaultStoreKey, []byte(doc)))

	r, _ := newTestRegistry(t, store, Config{})
	p, ok := r.Get("real")
	require.True(t, ok)
	assert.Equal(t, "real", p.ID)
}

func TestRegistry_Metrics(t *testing.T) {
	m := newFakeMetrics()
	r, _ := newTestRegistry(t, nil, Config{}, WithMetrics(m))
	assert.Equal(t, 4, m.builtin)
	assert.Equal(t, 0, m.custom)

	_, err := r.Create(context.Background(), types.Plugin{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.custom)

	r.GetAsTools([]string{ArxivSearchPluginID})
	r.GetAsTools([]string{ArxivSearchPluginID})
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.hits)
}

func TestRegistry_Entry(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})
	entry, err := r.Entry(CodeInterpreterPluginID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Length)
	require.NotNil(t, entry.Document)
	assert.Equal(t, "CodeInterpreter", entry.Document.Title)

	_, err = r.Entry("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)
	assert.NoError(t, r.Ping(context.Background()))
}

func TestRegistry_UpdateDuringGetAsTools(t *testing.T) {
	ctx := context.Background()
	many := make([]string, 60)
	for i := range many {
		many[i] = fmt.Sprintf("op%d", i)
	}

	for round := 0; round < 50; round++ {
		r, _ := newTestRegistry(t, nil, Config{})
		created, err := r.Create(ctx, types.Plugin{Content: apiDocument("big", "1", "https://x.example", many...)})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.GetAsTools([]string{created.ID})
		}()
		go func() {
			defer wg.Done()
			_, err := r.Update(ctx, created.ID, func(p *types.Plugin) {
				p.Content = apiDocument("small", "2", "https://x.example", "only")
			})
			assert.NoError(t, err)
		}()
		wg.Wait()

		set := r.GetAsTools([]string{created.ID})
		require.Len(t, set.Tools, 1, "round %d", round)
		assert.Equal(t, "only", set.Tools[0].Function.Name)
	}
}

func TestRegistry_CreateOverExistingRefreshesTools(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})
	ctx := context.Background()

	_, err := r.Create(ctx, types.Plugin{ID: "dup", Content: apiDocument("a", "1", "https://x.example", "first")})
	require.NoError(t, err)
	require.Len(t, r.GetAsTools([]string{"dup"}).Tools, 1)

	_, err = r.Create(ctx, types.Plugin{ID: "dup", Content: apiDocument("b", "1", "https://x.example", "second", "third")})
	require.NoError(t, err)
	set := r.GetAsTools([]string{"dup"})
	require.Len(t, set.Tools, 2)
	assert.NotContains(t, set.Funcs, "first")

	// the entry left behind by Delete does not leak into a new record with the same id
	require.NoError(t, r.Delete(ctx, "dup"))
	_, err = r.Create(ctx, types.Plugin{ID: "dup", Content: apiDocument("c", "1", "https://x.example", "fourth")})
	require.NoError(t, err)
	set = r.GetAsTools([]string{"dup"})
	require.Len(t, set.Tools, 1)
	assert.Equal(t, "fourth", set.Tools[0].Function.Name)
}

func TestRegistry_CreateBuiltinKeepsExisting(t *testing.T) {
	r, _ := newTestRegistry(t, nil, Config{})
	ctx := context.Background()

	_, err := r.Create(ctx, types.Plugin{ID: "mine", Title: "user"})
	require.NoError(t, err)

	got, created, err := r.createBuiltin(ctx, types.Plugin{ID: "mine", Title: "seeded"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "user", got.Title)

	stored, _ := r.Get("mine")
	assert.False(t, stored.Builtin)
	assert.Equal(t, "user", stored.Title)
}
