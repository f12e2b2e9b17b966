package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProbe struct {
	plugins    int
	lastUpdate int64
	err        error
}

func (p fakeProbe) Len() int                       { return p.plugins }
func (p fakeProbe) LastUpdateTime() int64          { return p.lastUpdate }
func (p fakeProbe) Ping(ctx context.Context) error { return p.err }

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	return status
}

func TestHealthHandler_HandleLive(t *testing.T) {
	// liveness never touches the store
	h := NewHealthHandler(fakeProbe{err: errors.New("down")}, VersionInfo{}, zap.NewNop())

	for _, path := range []string{"/health", "/healthz"} {
		w := httptest.NewRecorder()
		h.HandleLive(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		status := decodeStatus(t, w)
		assert.Equal(t, "healthy", status.Status)
		assert.False(t, status.Timestamp.IsZero())
		assert.Nil(t, status.Store)
	}
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name       string
		probe      RegistryProbe
		wantCode   int
		wantStatus string
		check      func(*testing.T, HealthStatus)
	}{
		{
			name:       "no registry",
			probe:      nil,
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			check: func(t *testing.T, s HealthStatus) {
				assert.Nil(t, s.Store)
			},
		},
		{
			name:       "store reachable",
			probe:      fakeProbe{plugins: 4, lastUpdate: 1700000000000},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			check: func(t *testing.T, s HealthStatus) {
				require.NotNil(t, s.Store)
				assert.Equal(t, "pass", s.Store.Status)
				assert.NotEmpty(t, s.Store.Latency)
				assert.Equal(t, 4, s.Plugins)
				assert.Equal(t, int64(1700000000000), s.LastUpdate)
			},
		},
		{
			name:       "store closed",
			probe:      fakeProbe{plugins: 2, err: errors.New("store is closed")},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			check: func(t *testing.T, s HealthStatus) {
				require.NotNil(t, s.Store)
				assert.Equal(t, "fail", s.Store.Status)
				assert.Equal(t, "store is closed", s.Store.Message)
				assert.Equal(t, 2, s.Plugins)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.probe, VersionInfo{}, nil)

			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			status := decodeStatus(t, w)
			assert.Equal(t, tt.wantStatus, status.Status)
			tt.check(t, status)
		})
	}
}

func TestHealthHandler_HandleReady_Concurrent(t *testing.T) {
	h := NewHealthHandler(fakeProbe{plugins: 1}, VersionInfo{}, zap.NewNop())

	done := make(chan int)
	for i := 0; i < 10; i++ {
		go func() {
			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			done <- w.Code
		}()
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, <-done)
	}
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	h := NewHealthHandler(nil, VersionInfo{
		Version:   "1.0.0",
		BuildTime: "2024-01-01T00:00:00Z",
		GitCommit: "abc123",
	}, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleVersion(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", data["version"])
	assert.Equal(t, "2024-01-01T00:00:00Z", data["build_time"])
	assert.Equal(t, "abc123", data["git_commit"])
}
