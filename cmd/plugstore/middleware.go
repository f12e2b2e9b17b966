package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/api/handlers"
	"github.com/BaSui01/plugstore/types"
)

// Middleware 类型定义
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个在最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// =============================================================================
// 🛟 Recovery
// =============================================================================

// Recovery 把 panic 转成 500 信封。http.ErrAbortHandler 继续上抛，
// 反向代理用它中断已开始写出的响应。
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", w.Header().Get(types.HeaderRequestID)),
					zap.Stack("stack"),
				)
				writeJSONError(w, http.StatusInternalServerError, types.ErrInternalError, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// 🏷️ Request ID
// =============================================================================

// RequestIDFromContext returns the request ID, or "" when none is set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := types.RequestID(ctx)
	return id
}

// SubjectFromContext returns the authenticated JWT subject.
func SubjectFromContext(ctx context.Context) (string, bool) {
	return types.Subject(ctx)
}

// RequestID 保留客户端提供的合法 X-Request-ID，否则生成新的，
// 写入响应头与请求上下文；插件调用会把它转发给上游。
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(types.HeaderRequestID)
			if !validRequestID(id) {
				id = generateRequestID()
			}
			w.Header().Set(types.HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), id)))
		})
	}
}

// validRequestID accepts up to 128 printable ASCII characters without spaces,
// keeping client ids out of log lines they could break.
func validRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "req-" + hex.EncodeToString(b)
}

// =============================================================================
// 🛡️ 响应头
// =============================================================================

var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Content-Security-Policy", "default-src 'self'"},
}

// SecurityHeaders 为每个响应添加安全响应头
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS 跨域中间件。只回显白名单内的 Origin；未列出的来源发起的预检请求得到 403。
// allowedOrigins 为空时拒绝所有跨域预检，而不是放开为 "*"。
func CORS(allowedOrigins []string) Middleware {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	allowHeaders := strings.Join([]string{
		"Content-Type", "Authorization", "X-API-Key", types.HeaderRequestID, handlers.BaseURLHeader,
	}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}
			if allowed[origin] {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				h.Set("Access-Control-Expose-Headers", types.HeaderRequestID)
				h.Set("Access-Control-Max-Age", "86400")
			}
			if r.Method == http.MethodOptions {
				if origin != "" && !allowed[origin] {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSONError writes the standard error envelope without logging.
func writeJSONError(w http.ResponseWriter, status int, code types.ErrorCode, message string) {
	handlers.WriteErrorMessage(w, status, code, message, nil)
}
