// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。
//
// 它同时实现 openapi.Observer、plugins.Metrics 与 persistence.OperationRecorder，
// 由 App 分别挂到翻译生成器、注册表和存储装饰器上。
type Collector struct {
	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 插件翻译与调用
	translationsTotal    *prometheus.CounterVec
	translatedOperations *prometheus.GaugeVec
	invocationsTotal     *prometheus.CounterVec
	invocationDuration   *prometheus.HistogramVec
	pluginsRegistered    *prometheus.GaugeVec
	seedEntriesTotal     *prometheus.CounterVec

	// 翻译缓存
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 存储
	storeOperationDuration *prometheus.HistogramVec
	storeErrorsTotal       *prometheus.CounterVec
}

var (
	sizeBuckets       = prometheus.ExponentialBuckets(100, 10, 8)
	invocationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}
)

// NewCollector 在 reg 上注册全部指标。服务进程传 prometheus.DefaultRegisterer，
// 测试传独立的 prometheus.NewRegistry()。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := factory{auto: promauto.With(reg), ns: namespace}

	c := &Collector{
		httpRequestsTotal:   f.counter("http_requests_total", "Total number of HTTP requests", "method", "path", "status"),
		httpRequestDuration: f.histogram("http_request_duration_seconds", "HTTP request duration in seconds", prometheus.DefBuckets, "method", "path"),
		httpRequestSize:     f.histogram("http_request_size_bytes", "HTTP request size in bytes", sizeBuckets, "method", "path"),
		httpResponseSize:    f.histogram("http_response_size_bytes", "HTTP response size in bytes", sizeBuckets, "method", "path"),

		translationsTotal:    f.counter("plugin_translations_total", "Total number of plugin API description translations", "status"),
		translatedOperations: f.gauge("plugin_operations", "Number of operations produced by the latest translation of a plugin", "plugin"),
		invocationsTotal:     f.counter("plugin_invocations_total", "Total number of plugin operation invocations", "plugin", "operation", "status"),
		invocationDuration:   f.histogram("plugin_invocation_duration_seconds", "Plugin operation invocation duration in seconds", invocationBuckets, "plugin", "operation"),
		pluginsRegistered:    f.gauge("plugins_registered", "Number of registered plugins", "kind"),
		seedEntriesTotal:     f.counter("plugin_seed_entries_total", "Total number of seeding manifest entries by outcome", "outcome"),

		cacheHits:   f.counter("cache_hits_total", "Total number of cache hits", "cache_type"),
		cacheMisses: f.counter("cache_misses_total", "Total number of cache misses", "cache_type"),

		storeOperationDuration: f.histogram("store_operation_duration_seconds", "Persistence backend operation duration in seconds", prometheus.DefBuckets, "backend", "operation"),
		storeErrorsTotal:       f.counter("store_errors_total", "Total number of failed persistence backend operations", "backend", "operation"),
	}

	logger.Debug("metrics collector initialized", zap.String("component", "metrics"), zap.String("namespace", namespace))
	return c
}

type factory struct {
	auto promauto.Factory
	ns   string
}

func (f factory) counter(name, help string, labels ...string) *prometheus.CounterVec {
	return f.auto.NewCounterVec(prometheus.CounterOpts{Namespace: f.ns, Name: name, Help: help}, labels)
}

func (f factory) gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return f.auto.NewGaugeVec(prometheus.GaugeOpts{Namespace: f.ns, Name: name, Help: help}, labels)
}

func (f factory) histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return f.auto.NewHistogramVec(prometheus.HistogramOpts{Namespace: f.ns, Name: name, Help: help, Buckets: buckets}, labels)
}

// =============================================================================
// 🎯 记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求，path 应为路由模板
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordTranslation 记录一次插件翻译。失败时只计数，不改动该插件的操作数。
func (c *Collector) RecordTranslation(pluginID string, operations int, err error) {
	if err != nil {
		c.translationsTotal.WithLabelValues("failed").Inc()
		return
	}
	c.translationsTotal.WithLabelValues("ok").Inc()
	c.translatedOperations.WithLabelValues(pluginID).Set(float64(operations))
}

// RecordInvocation 记录一次插件操作调用。没有拿到响应的失败记为 "error"。
func (c *Collector) RecordInvocation(pluginID, operation string, status int, duration time.Duration, err error) {
	label := statusClass(status)
	if err != nil && status == 0 {
		label = "error"
	}
	c.invocationsTotal.WithLabelValues(pluginID, operation, label).Inc()
	c.invocationDuration.WithLabelValues(pluginID, operation).Observe(duration.Seconds())
}

// ForgetPlugin 删除插件相关的带 plugin 标签的序列
func (c *Collector) ForgetPlugin(pluginID string) {
	c.translatedOperations.DeleteLabelValues(pluginID)
	c.invocationsTotal.DeletePartialMatch(prometheus.Labels{"plugin": pluginID})
	c.invocationDuration.DeletePartialMatch(prometheus.Labels{"plugin": pluginID})
}

// SetPluginsRegistered 更新已注册插件数量
func (c *Collector) SetPluginsRegistered(builtin, custom int) {
	c.pluginsRegistered.WithLabelValues("builtin").Set(float64(builtin))
	c.pluginsRegistered.WithLabelValues("custom").Set(float64(custom))
}

// RecordSeedEntry 记录种子清单条目的处理结果：added、skipped 或 failed
func (c *Collector) RecordSeedEntry(outcome string) {
	c.seedEntriesTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordStoreOperation 记录存储后端操作耗时与失败
func (c *Collector) RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	c.storeOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		c.storeErrorsTotal.WithLabelValues(backend, operation).Inc()
	}
}

// statusClass 把状态码归并为 2xx/3xx/4xx/5xx
func statusClass(code int) string {
	if code < 200 || code > 599 {
		return "unknown"
	}
	return string(rune('0'+code/100)) + "xx"
}
