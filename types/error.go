package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Request and transport error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrAuthentication     ErrorCode = "AUTHENTICATION"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout    ErrorCode = "UPSTREAM_TIMEOUT"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Plugin error codes
const (
	ErrPluginNotFound   ErrorCode = "PLUGIN_NOT_FOUND"
	ErrToolNotFound     ErrorCode = "TOOL_NOT_FOUND"
	ErrInvalidDocument  ErrorCode = "INVALID_DOCUMENT"
	ErrInvalidArguments ErrorCode = "INVALID_ARGUMENTS"
	ErrStorage          ErrorCode = "STORAGE_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Plugin     string    `json:"plugin,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Cause      error     `json:"-"`
}

// Error formats as "[CODE] plugin/operation: message: cause", leaving out
// the parts that are unset.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Code)
	switch {
	case e.Plugin != "" && e.Operation != "":
		fmt.Fprintf(&b, "%s/%s: ", e.Plugin, e.Operation)
	case e.Plugin != "":
		fmt.Fprintf(&b, "%s: ", e.Plugin)
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so a bare NewError(code, "")
// works as a sentinel with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithPlugin records the plugin the error originated from.
func (e *Error) WithPlugin(pluginID string) *Error {
	e.Plugin = pluginID
	return e
}

// WithOperation records the API operation the error originated from.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
