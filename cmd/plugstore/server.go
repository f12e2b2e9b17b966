package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/api/handlers"
	"github.com/BaSui01/plugstore/config"
	"github.com/BaSui01/plugstore/internal/metrics"
	"github.com/BaSui01/plugstore/internal/server"
)

// =============================================================================
// 🌐 HTTP 路由
// =============================================================================

// publicPaths 不需要认证的路径
var publicPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// NewAPIHandler 构建管理 API 的路由与中间件链。ctx 结束时限流器的清理协程退出。
// collector 为 nil 时不记录 HTTP 指标。
func NewAPIHandler(ctx context.Context, cfg *config.Config, app *App, collector *metrics.Collector, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	health := handlers.NewHealthHandler(app.Registry(), handlers.VersionInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}, logger)
	mux.HandleFunc("GET /health", health.HandleLive)
	mux.HandleFunc("GET /healthz", health.HandleLive)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion)

	// ========================================
	// 插件与工具 API
	// ========================================
	pluginHandler := handlers.NewPluginHandler(app.Registry(), logger)
	mux.HandleFunc("GET /api/plugins", pluginHandler.HandleList)
	mux.HandleFunc("POST /api/plugins", pluginHandler.HandleCreate)
	mux.HandleFunc("GET /api/plugins/{id}", pluginHandler.HandleGet)
	mux.HandleFunc("PATCH /api/plugins/{id}", pluginHandler.HandleUpdate)
	mux.HandleFunc("DELETE /api/plugins/{id}", pluginHandler.HandleDelete)

	toolsHandler := handlers.NewToolsHandler(app.Registry(), logger)
	mux.HandleFunc("POST /api/tools", toolsHandler.HandleTools)
	mux.HandleFunc("POST /api/tools/invoke", toolsHandler.HandleInvoke)

	// ========================================
	// 本地转发代理
	// ========================================
	mux.Handle(handlers.DefaultProxyPrefix, handlers.NewProxyHandler(
		handlers.DefaultProxyPrefix, nil, cfg.Server.ProxyTimeout, logger))

	// ========================================
	// 构建中间件链
	// ========================================
	exempt := NewAuthExemption(publicPaths, []string{handlers.DefaultProxyPrefix})
	chain := []Middleware{
		Recovery(logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(logger),
	}
	if collector != nil {
		chain = append(chain, MetricsMiddleware(collector))
	}
	chain = append(chain,
		CORS(cfg.Server.CORSAllowedOrigins),
		APIKeyAuth(cfg.Server.APIKeys, exempt, cfg.Server.AllowQueryAPIKey, logger),
	)
	if cfg.Server.JWT.Enabled() {
		chain = append(chain, JWTAuth(cfg.Server.JWT, exempt, logger))
	}
	// 限流放在认证之后，已认证请求按 subject 计数
	chain = append(chain, RateLimiter(ctx, float64(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst, logger))

	return Chain(mux, chain...)
}

// NewMetricsHandler 构建管理端口的路由：/metrics 暴露 Prometheus 指标，
// /loglevel 读取（GET）或修改（PUT {"level":"debug"}）日志级别。
// 该端口不经过认证中间件，应只在内网暴露。
func NewMetricsHandler(level zap.AtomicLevel) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/loglevel", level)
	return mux
}

// =============================================================================
// 🖥️ 服务器管理器
// =============================================================================

// newServerManagers 创建 API 与管理端口两个服务器管理器。
// MetricsPort 为 0 时不启动管理服务器，返回的第二个值为 nil。
func newServerManagers(cfg *config.Config, api, admin http.Handler, logger *zap.Logger) (*server.Manager, *server.Manager) {
	apiManager := server.NewManager(api, server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                    // 1 MB
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TLSCertFile:     cfg.Server.TLSCertFile,
		TLSKeyFile:      cfg.Server.TLSKeyFile,
	}, logger)

	if cfg.Server.MetricsPort == 0 {
		return apiManager, nil
	}

	metricsManager := server.NewManager(admin, server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	return apiManager, metricsManager
}
