package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/types"
)

// maxRequestBodyBytes 限制管理 API 请求体大小（插件文档可能较大）
const maxRequestBodyBytes = 8 << 20

// =============================================================================
// 📦 响应信封
// =============================================================================

// Response 统一 API 响应结构；请求 ID 由中间件写入 X-Request-ID 响应头
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo 错误信息结构。UpstreamStatus 为插件 API 返回的状态码，
// 仅在调用上游失败时出现。
type ErrorInfo struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	Retryable      bool   `json:"retryable,omitempty"`
	Plugin         string `json:"plugin,omitempty"`
	Operation      string `json:"operation,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// fallbackBody 在信封本身无法编码时返回
var fallbackBody = []byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"response encoding failed"}}` + "\n")

// WriteJSON 先完整编码再写出，编码失败时仍能返回 500
func WriteJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		buf.Write(fallbackBody)
	}
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// WriteSuccess 写入 200 成功信封
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Success: true, Data: data, Timestamp: time.Now()})
}

// WriteError 写入错误信封。5xx 记 Error，其余记 Warn。
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status, upstream := statusFor(err)

	if logger != nil {
		log := logger.Warn
		if status >= http.StatusInternalServerError {
			log = logger.Error
		}
		log("API error",
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.Int("upstream_status", upstream),
			zap.String("plugin", err.Plugin),
			zap.String("operation", err.Operation),
			zap.Error(err.Cause),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorInfo{
			Code:           string(err.Code),
			Message:        err.Message,
			Retryable:      err.Retryable,
			Plugin:         err.Plugin,
			Operation:      err.Operation,
			UpstreamStatus: upstream,
		},
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage 以指定状态码写入简单错误
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// WriteAnyError 写入任意错误；不带错误码的错误视为内部错误，原因只进日志
func WriteAnyError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if typed, ok := types.AsError(err); ok {
		WriteError(w, typed, logger)
		return
	}
	WriteError(w, types.NewError(types.ErrInternalError, "internal error").WithCause(err), logger)
}

// =============================================================================
// 🔄 错误码 → HTTP 状态码
// =============================================================================

var codeStatus = map[types.ErrorCode]int{
	types.ErrInvalidRequest:     http.StatusBadRequest,
	types.ErrInvalidArguments:   http.StatusBadRequest,
	types.ErrInvalidDocument:    http.StatusBadRequest,
	types.ErrAuthentication:     http.StatusUnauthorized,
	types.ErrUnauthorized:       http.StatusUnauthorized,
	types.ErrForbidden:          http.StatusForbidden,
	types.ErrPluginNotFound:     http.StatusNotFound,
	types.ErrToolNotFound:       http.StatusNotFound,
	types.ErrRateLimited:        http.StatusTooManyRequests,
	types.ErrUpstreamError:      http.StatusBadGateway,
	types.ErrUpstreamTimeout:    http.StatusGatewayTimeout,
	types.ErrTimeout:            http.StatusGatewayTimeout,
	types.ErrServiceUnavailable: http.StatusServiceUnavailable,
	types.ErrStorage:            http.StatusInternalServerError,
	types.ErrInternalError:      http.StatusInternalServerError,
}

// codeToStatus 未知错误码按 500 处理
func codeToStatus(code types.ErrorCode) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// statusFor 返回响应状态码。上游错误携带的是插件 API 的状态码，
// 对调用方统一答 502/504，原状态码放入 upstream。
func statusFor(err *types.Error) (status, upstream int) {
	switch {
	case err.Code == types.ErrUpstreamError, err.Code == types.ErrUpstreamTimeout:
		return codeToStatus(err.Code), err.HTTPStatus
	case err.HTTPStatus != 0:
		return err.HTTPStatus, 0
	default:
		return codeToStatus(err.Code), 0
	}
}

// =============================================================================
// 🛡️ 请求体解析
// =============================================================================

// BindJSON 要求 application/json，按严格模式把请求体解码进 dst：
// 未知字段、多余的尾随内容和超过 8 MB 的请求体都会被拒绝。
// 返回 false 时错误响应已写出。
func BindJSON(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		WriteErrorMessage(w, http.StatusUnsupportedMediaType, types.ErrInvalidRequest, "Content-Type must be application/json", logger)
		return false
	}
	if err := decodeStrict(w, r, dst); err != nil {
		WriteError(w, err, logger)
		return false
	}
	return true
}

func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) *types.Error {
	if r.Body == nil || r.Body == http.NoBody {
		return types.NewError(types.ErrInvalidRequest, "request body is empty")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return types.NewError(types.ErrInvalidRequest, "request body is empty")
	case errors.As(err, &tooLarge):
		return types.NewError(types.ErrInvalidRequest, "request body exceeds 8 MB").
			WithHTTPStatus(http.StatusRequestEntityTooLarge)
	case err != nil:
		return types.NewError(types.ErrInvalidRequest, "invalid JSON body").WithCause(err)
	}
	if dec.More() {
		return types.NewError(types.ErrInvalidRequest, "request body must contain a single JSON value")
	}
	return nil
}
