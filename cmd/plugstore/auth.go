package main

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/config"
	"github.com/BaSui01/plugstore/types"
)

// =============================================================================
// 🔐 认证
// =============================================================================

// AuthExemption reports whether a request may skip authentication.
type AuthExemption func(r *http.Request) bool

func (e AuthExemption) matches(r *http.Request) bool {
	return e != nil && e(r)
}

// NewAuthExemption exempts publicPaths for every caller and paths under
// loopbackPrefixes only for callers on a loopback address. The second form
// lets the server call its own proxy without holding an API key; it relies on
// RemoteAddr, so it must not sit behind a reverse proxy on the same host.
func NewAuthExemption(publicPaths, loopbackPrefixes []string) AuthExemption {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		if _, ok := public[r.URL.Path]; ok {
			return true
		}
		for _, prefix := range loopbackPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				return isLoopback(r.RemoteAddr)
			}
		}
		return false
	}
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// APIKeyAuth 校验 X-API-Key（allowQuery 时也接受 ?api_key=）。
// 未配置任何 key 时直接放行。
func APIKeyAuth(validKeys []string, exempt AuthExemption, allowQuery bool, logger *zap.Logger) Middleware {
	keys := make([][]byte, 0, len(validKeys))
	for _, k := range validKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if allowQuery {
		logger.Warn("API keys are accepted in the query string; they may leak into access logs")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt.matches(r) {
				next.ServeHTTP(w, r)
				return
			}
			presented := r.Header.Get("X-API-Key")
			if presented == "" && allowQuery {
				presented = r.URL.Query().Get("api_key")
			}
			if presented == "" || !knownKey(keys, []byte(presented)) {
				logger.Debug("api key rejected",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Bool("present", presented != ""),
				)
				writeJSONError(w, http.StatusUnauthorized, types.ErrUnauthorized, "missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// knownKey compares against every key in constant time.
func knownKey(keys [][]byte, presented []byte) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, presented)
	}
	return found == 1
}

// =============================================================================
// 🎫 JWT
// =============================================================================

// jwtVerifier holds the parsed keys and parser options of a JWTConfig.
type jwtVerifier struct {
	secret []byte
	rsaKey any
	parser *jwt.Parser
}

func newJWTVerifier(cfg config.JWTConfig) (*jwtVerifier, error) {
	v := &jwtVerifier{}
	var methods []string
	if cfg.Secret != "" {
		v.secret = []byte(cfg.Secret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if cfg.PublicKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.rsaKey = key
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithLeeway(30 * time.Second)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

func (v *jwtVerifier) keyFor(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret != nil {
			return v.secret, nil
		}
	case *jwt.SigningMethodRSA:
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
	}
	return nil, fmt.Errorf("no key for signing method %s", token.Method.Alg())
}

// subject verifies raw and returns its "sub" claim.
func (v *jwtVerifier) subject(raw string) (string, error) {
	token, err := v.parser.Parse(raw, v.keyFor)
	if err != nil {
		return "", err
	}
	return token.Claims.GetSubject()
}

// JWTAuth 校验 Authorization: Bearer <token>，通过后把 sub 写入请求上下文，
// 限流器据此按用户分桶。公钥无法解析时拒绝所有需要认证的请求。
func JWTAuth(cfg config.JWTConfig, exempt AuthExemption, logger *zap.Logger) Middleware {
	verifier, cfgErr := newJWTVerifier(cfg)
	if cfgErr != nil {
		logger.Error("JWT authentication misconfigured; rejecting authenticated requests", zap.Error(cfgErr))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt.matches(r) {
				next.ServeHTTP(w, r)
				return
			}
			if cfgErr != nil {
				writeJSONError(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "authentication unavailable")
				return
			}
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeJSONError(w, http.StatusUnauthorized, types.ErrUnauthorized, "missing bearer token")
				return
			}
			sub, err := verifier.subject(raw)
			if err != nil {
				logger.Debug("jwt rejected", zap.String("path", r.URL.Path), zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, types.ErrUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(types.WithSubject(r.Context(), sub)))
		})
	}
}
