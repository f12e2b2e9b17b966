package plugins

// Metrics receives registry and seeding events. *metrics.Collector satisfies it.
type Metrics interface {
	SetPluginsRegistered(builtin, custom int)
	ForgetPlugin(pluginID string)
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
	RecordSeedEntry(outcome string)
}

// cacheType labels translation cache lookups.
const cacheType = "translation"

// Seed outcomes.
const (
	SeedAdded   = "added"
	SeedSkipped = "skipped"
	SeedFailed  = "failed"
)

type nopMetrics struct{}

func (nopMetrics) SetPluginsRegistered(int, int) {}
func (nopMetrics) ForgetPlugin(string)           {}
func (nopMetrics) RecordCacheHit(string)         {}
func (nopMetrics) RecordCacheMiss(string)        {}
func (nopMetrics) RecordSeedEntry(string)        {}
