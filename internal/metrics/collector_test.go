package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCollector() *Collector {
	return NewCollector("test", prometheus.NewRegistry(), zap.NewNop())
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := newTestCollector()

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.translationsTotal)
	assert.NotNil(t, collector.invocationsTotal)
	assert.NotNil(t, collector.pluginsRegistered)
	assert.NotNil(t, collector.storeOperationDuration)
}

func TestNewCollector_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("test", prometheus.NewRegistry(), nil)
	})
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := newTestCollector()

	collector.RecordHTTPRequest("GET", "/api/plugins", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("GET", "/api/plugins", 201, 50*time.Millisecond, 512, 1024)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/plugins", "2xx")))
}

func TestCollector_RecordTranslation(t *testing.T) {
	collector := newTestCollector()

	collector.RecordTranslation("p1", 3, nil)
	collector.RecordTranslation("p2", 0, errors.New("bad document"))

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.translationsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.translationsTotal.WithLabelValues("failed")))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.translatedOperations.WithLabelValues("p1")))

	// a failed translation leaves the operation gauge untouched
	assert.Equal(t, 1, testutil.CollectAndCount(collector.translatedOperations))

	collector.ForgetPlugin("p1")
	assert.Equal(t, 0, testutil.CollectAndCount(collector.translatedOperations))
}

func TestCollector_RecordInvocation(t *testing.T) {
	collector := newTestCollector()

	collector.RecordInvocation("p1", "search", 200, 10*time.Millisecond, nil)
	collector.RecordInvocation("p1", "search", 503, 10*time.Millisecond, errors.New("upstream"))
	collector.RecordInvocation("p1", "search", 0, time.Second, errors.New("dial"))

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.invocationsTotal.WithLabelValues("p1", "search", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.invocationsTotal.WithLabelValues("p1", "search", "5xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.invocationsTotal.WithLabelValues("p1", "search", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.invocationDuration))

	collector.RecordInvocation("p2", "lookup", 200, time.Millisecond, nil)
	collector.ForgetPlugin("p1")
	assert.Equal(t, 1, testutil.CollectAndCount(collector.invocationsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.invocationDuration))
}

func TestCollector_PluginGaugesAndSeeding(t *testing.T) {
	collector := newTestCollector()

	collector.SetPluginsRegistered(4, 2)
	collector.SetPluginsRegistered(4, 1)
	collector.RecordSeedEntry("added")
	collector.RecordSeedEntry("skipped")
	collector.RecordSeedEntry("skipped")

	assert.Equal(t, float64(4), testutil.ToFloat64(collector.pluginsRegistered.WithLabelValues("builtin")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.pluginsRegistered.WithLabelValues("custom")))
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.seedEntriesTotal.WithLabelValues("skipped")))
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	collector := newTestCollector()

	collector.RecordCacheHit("translation")
	collector.RecordCacheMiss("translation")

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.cacheHits.WithLabelValues("translation")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.cacheMisses.WithLabelValues("translation")))
}

func TestCollector_RecordStoreOperation(t *testing.T) {
	collector := newTestCollector()

	collector.RecordStoreOperation("redis", "set", 2*time.Millisecond, nil)
	collector.RecordStoreOperation("redis", "get", 2*time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 2, testutil.CollectAndCount(collector.storeOperationDuration))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.storeErrorsTotal.WithLabelValues("redis", "get")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := newTestCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond, 0, 0)
			collector.RecordInvocation("p", "op", 200, time.Millisecond, nil)
			collector.RecordCacheHit("translation")
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(10), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, float64(10), testutil.ToFloat64(collector.invocationsTotal.WithLabelValues("p", "op", "2xx")))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector("plugstore", reg, zap.NewNop()).RecordSeedEntry("added")

	// a second collector on its own registry does not collide
	assert.NotPanics(t, func() { NewCollector("plugstore", prometheus.NewRegistry(), nil) })
	assert.Panics(t, func() { NewCollector("plugstore", reg, nil) })

	n, err := testutil.GatherAndCount(reg, "plugstore_plugin_seed_entries_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 302: "3xx", 404: "4xx", 502: "5xx", 0: "unknown", 600: "unknown"}
	for code, want := range tests {
		assert.Equal(t, want, statusClass(code))
	}
}
