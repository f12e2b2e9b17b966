// =============================================================================
// plugstore 主入口
// =============================================================================
// 插件仓库服务入口点，包含 HTTP 管理 API、本地代理、健康检查、Prometheus 指标
//
// 使用方法:
//
//	plugstore serve                       # 启动服务
//	plugstore serve --config config.yaml  # 指定配置文件
//	plugstore seed                        # 从种子清单导入内置插件
//	plugstore list                        # 列出已注册插件
//	plugstore tools <id>...               # 查看插件翻译出的函数
//	plugstore health                      # 健康检查
//	plugstore version                     # 显示版本信息
// =============================================================================

// @title plugstore API
// @version 1.0.0
// @description plugstore manages plugins described by OpenAPI documents and exposes them as callable tools.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/plugstore/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := NewRootCommand(Version, GitCommit, BuildTime).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

// initLogger builds the process logger from LogConfig. The returned level is
// served on the metrics port at /loglevel so it can be raised at runtime.
func initLogger(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	// every request line matters for tracing a plugin call
	zc.Sampling = nil
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.DisableCaller = !cfg.EnableCaller
	zc.DisableStacktrace = !cfg.EnableStacktrace

	logger, buildErr := zc.Build()
	if buildErr != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("invalid log configuration, using defaults", zap.Error(buildErr))
	}
	if err != nil {
		logger.Warn("unknown log level, using info", zap.String("level", cfg.Level))
	}
	return logger, level
}
