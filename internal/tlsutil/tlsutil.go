package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// aeadSuites are the only TLS 1.2 suites offered. TLS 1.3 suites are fixed by
// crypto/tls and always AEAD.
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// DefaultTLSConfig returns a TLS 1.2+ configuration restricted to AEAD suites.
func DefaultTLSConfig() *tls.Config {
	suites := make([]uint16, len(aeadSuites))
	copy(suites, aeadSuites)
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: suites,
	}
}

// TransportOptions tunes a hardened transport for one kind of outbound traffic.
type TransportOptions struct {
	// ResponseHeaderTimeout bounds the wait for upstream headers; 0 means none.
	ResponseHeaderTimeout time.Duration
	// IgnoreEnvProxy stops HTTP_PROXY/HTTPS_PROXY from being honoured.
	IgnoreEnvProxy bool
	// MaxIdleConnsPerHost; 0 keeps the net/http default.
	MaxIdleConnsPerHost int
}

// NewTransport builds an http.Transport with the hardened TLS config.
func NewTransport(opts TransportOptions) *http.Transport {
	tr := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
	}
	if opts.IgnoreEnvProxy {
		tr.Proxy = nil
	}
	return tr
}

// SecureHTTPClient returns the client used for plugin API calls and seeding.
// A zero timeout leaves the caller's context as the only deadline.
func SecureHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(TransportOptions{}),
	}
}

// ProxyTransport returns the transport of the local forwarding proxy. It never
// consults environment proxy settings so forwarded plugin traffic cannot loop
// through another proxy.
func ProxyTransport(responseHeaderTimeout time.Duration) *http.Transport {
	return NewTransport(TransportOptions{
		ResponseHeaderTimeout: responseHeaderTimeout,
		IgnoreEnvProxy:        true,
		MaxIdleConnsPerHost:   16,
	})
}
