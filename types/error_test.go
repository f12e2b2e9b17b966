package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithPlugin("p-1").
		WithOperation("searchPapers")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "p-1", err.Plugin)
	assert.Equal(t, "searchPapers", err.Operation)
	assert.Contains(t, err.Error(), "upstream failed")
	assert.Contains(t, err.Error(), "root")
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrPluginNotFound, "plugin missing")
	wrapped := fmt.Errorf("get tools: %w", inner)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, IsErrorCode(wrapped, ErrPluginNotFound))
	assert.False(t, IsRetryable(wrapped))
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	assert.Equal(t, ErrorCode(""), GetErrorCode(plain))
	assert.False(t, IsRetryable(plain))
	_, ok := AsError(nil)
	assert.False(t, ok)
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"bare", NewError(ErrInvalidRequest, "bad body"), "[INVALID_REQUEST] bad body"},
		{"plugin", NewError(ErrPluginNotFound, "not registered").WithPlugin("p-1"), "[PLUGIN_NOT_FOUND] p-1: not registered"},
		{
			"plugin and operation with cause",
			NewError(ErrUpstreamTimeout, "no response").WithPlugin("p-1").WithOperation("search").WithCause(errors.New("deadline")),
			"[UPSTREAM_TIMEOUT] p-1/search: no response: deadline",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("dispatch: %w", NewError(ErrToolNotFound, "no such tool").WithPlugin("p-1"))
	assert.ErrorIs(t, err, NewError(ErrToolNotFound, ""))
	assert.NotErrorIs(t, err, NewError(ErrPluginNotFound, ""))
}
