package main

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/api/handlers"
	"github.com/BaSui01/plugstore/internal/metrics"
)

// =============================================================================
// 📝 日志 / 指标 / 追踪
// =============================================================================

// statusRecorder captures the status code and body size written below it.
// Wrapping an existing recorder returns it unchanged, so the logging, metrics
// and tracing layers share one wrapper per request.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.wroteHeader {
		return
	}
	rec.status = code
	rec.wroteHeader = true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// Flush keeps streamed proxy responses flowing.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// RequestLogger 记录每个请求。5xx 记为 error，4xx 记为 warn；
// 代理请求附带 X-Base-URL 指向的上游。
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := recordStatus(w)
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int64("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			}
			if target := r.Header.Get(handlers.BaseURLHeader); target != "" {
				fields = append(fields, zap.String("proxy_target", target))
			}

			switch {
			case rec.status >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case rec.status >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}

// MetricsMiddleware 记录 HTTP 请求指标，路径按路由模板归并以限制基数
func MetricsMiddleware(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := recordStatus(w)
			next.ServeHTTP(rec, r)

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}
			collector.RecordHTTPRequest(r.Method, normalizePath(r.URL.Path), rec.status,
				time.Since(start), requestSize, rec.bytes)
		})
	}
}

// OTelTracing 为每个请求开启 server span，并从请求头提取上游 trace 上下文。
// 工具调用的 span 挂在该 span 之下。
func OTelTracing() Middleware {
	tracer := otel.Tracer("github.com/BaSui01/plugstore/http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			route := normalizePath(r.URL.Path)

			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRoute(route),
				semconv.URLPath(r.URL.Path),
			}
			if target := r.Header.Get(handlers.BaseURLHeader); target != "" {
				attrs = append(attrs, attribute.String("plugstore.proxy.target", target))
			}
			ctx, span := tracer.Start(ctx, r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			rec := recordStatus(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

var knownRoutes = map[string]bool{
	"/health":           true,
	"/healthz":          true,
	"/ready":            true,
	"/readyz":           true,
	"/version":          true,
	"/api/plugins":      true,
	"/api/tools":        true,
	"/api/tools/invoke": true,
}

// normalizePath maps a request path to its route template.
func normalizePath(path string) string {
	switch {
	case knownRoutes[path]:
		return path
	case strings.HasPrefix(path, handlers.DefaultProxyPrefix):
		return "/api/proxy/*"
	case strings.HasPrefix(path, "/api/plugins/") && !strings.Contains(path[len("/api/plugins/"):], "/"):
		return "/api/plugins/:id"
	default:
		return "other"
	}
}
