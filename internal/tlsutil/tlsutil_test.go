package tlsutil

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.Len(t, cfg.CipherSuites, len(aeadSuites))

	// callers may mutate their copy
	cfg.CipherSuites[0] = 0
	assert.NotZero(t, DefaultTLSConfig().CipherSuites[0])
}

func TestNewTransport(t *testing.T) {
	tr := NewTransport(TransportOptions{})
	require.NotNil(t, tr.TLSClientConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
	assert.True(t, tr.ForceAttemptHTTP2)
	assert.NotNil(t, tr.Proxy)
	assert.Zero(t, tr.ResponseHeaderTimeout)
	assert.Zero(t, tr.MaxIdleConnsPerHost)
}

func TestSecureHTTPClient(t *testing.T) {
	client := SecureHTTPClient(15 * time.Second)
	assert.Equal(t, 15*time.Second, client.Timeout)
	assert.IsType(t, &http.Transport{}, client.Transport)

	assert.Zero(t, SecureHTTPClient(0).Timeout)
}

func TestProxyTransport(t *testing.T) {
	tr := ProxyTransport(5 * time.Second)
	assert.Nil(t, tr.Proxy)
	assert.Equal(t, 5*time.Second, tr.ResponseHeaderTimeout)
	assert.Equal(t, 16, tr.MaxIdleConnsPerHost)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)

	assert.Zero(t, ProxyTransport(0).ResponseHeaderTimeout)
}
