package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/plugstore/config"
	"github.com/BaSui01/plugstore/internal/metrics"
	"github.com/BaSui01/plugstore/internal/tlsutil"
	"github.com/BaSui01/plugstore/persistence"
	"github.com/BaSui01/plugstore/plugins"
	"github.com/BaSui01/plugstore/tools/openapi"
)

// =============================================================================
// 🧩 应用装配
// =============================================================================

// App 持有一次进程生命周期内的插件组件
type App struct {
	cfg      *config.Config
	store    persistence.Store
	service  *openapi.Service
	registry *plugins.Registry
	logger   *zap.Logger
}

// NewApp 打开存储、创建翻译服务并从存储恢复插件状态。
// collector 为 nil 时不采集指标。
func NewApp(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	storeCfg := storeConfig(cfg)
	store, err := persistence.NewStore(ctx, storeCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", storeCfg.Type, err)
	}

	var (
		genOpts []openapi.Option
		regOpts []plugins.Option
	)
	if collector != nil {
		store = persistence.Instrument(store, string(storeCfg.Type), collector)
		genOpts = append(genOpts, openapi.WithObserver(collector))
		regOpts = append(regOpts, plugins.WithMetrics(collector))
	}

	generator := openapi.NewGenerator(generatorConfig(cfg), logger, genOpts...)
	service := openapi.NewService(generator, logger)
	registry := plugins.NewRegistry(store, service, registryConfig(cfg), logger, regOpts...)

	if err := registry.Rehydrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to rehydrate plugins: %w", err)
	}

	return &App{
		cfg:      cfg,
		store:    store,
		service:  service,
		registry: registry,
		logger:   logger.With(zap.String("component", "app")),
	}, nil
}

// Registry 返回插件注册表
func (a *App) Registry() *plugins.Registry {
	return a.registry
}

// Seed 从配置的种子清单导入内置插件
func (a *App) Seed(ctx context.Context, manifestURL string) (plugins.SeedResult, error) {
	if manifestURL == "" {
		manifestURL = a.cfg.Plugins.SeedURL
	}
	if manifestURL == "" {
		return plugins.SeedResult{}, errors.New("no seed manifest url configured")
	}

	seedCfg := seedConfig(a.cfg)
	seedCfg.ManifestURL = manifestURL
	seeder, err := plugins.NewSeeder(a.registry, tlsutil.SecureHTTPClient(a.cfg.Plugins.SeedTimeout), seedCfg, a.logger)
	if err != nil {
		return plugins.SeedResult{}, err
	}
	return seeder.Seed(ctx)
}

// Close 关闭存储
func (a *App) Close() error {
	return a.store.Close()
}

// =============================================================================
// 🔧 配置映射
// =============================================================================

func storeConfig(cfg *config.Config) persistence.StoreConfig {
	sc := persistence.DefaultStoreConfig()
	sc.Type = persistence.StoreType(cfg.Store.Type)
	sc.BaseDir = cfg.Store.Dir

	sc.Bolt.Path = cfg.Store.BoltPath
	sc.Bolt.Bucket = cfg.Store.BoltBucket
	sc.Bolt.OpenTimeout = cfg.Store.Timeout

	sc.Redis = persistence.RedisStoreConfig{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		TLS:          cfg.Redis.TLS,
		KeyPrefix:    cfg.Redis.KeyPrefix,
	}

	sc.SQL = persistence.SQLStoreConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	sc.Mongo = persistence.MongoStoreConfig{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		Collection:     cfg.Mongo.Collection,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}
	return sc
}

func generatorConfig(cfg *config.Config) openapi.Config {
	return openapi.Config{
		ProxyURL:         cfg.Plugins.ProxyURL,
		Timeout:          cfg.Plugins.InvokeTimeout,
		NormalizeBearer:  cfg.Plugins.NormalizeBearer,
		MaxResponseBytes: cfg.Plugins.MaxResponseBytes,
	}
}

func registryConfig(cfg *config.Config) plugins.Config {
	return plugins.Config{
		StoreKey:           cfg.Store.Key,
		PurgeCacheOnDelete: cfg.Plugins.PurgeCacheOnDelete,
	}
}

func seedConfig(cfg *config.Config) plugins.SeedConfig {
	return plugins.SeedConfig{
		ManifestURL:  cfg.Plugins.SeedURL,
		Concurrency:  cfg.Plugins.SeedConcurrency,
		MaxBodyBytes: cfg.Plugins.MaxResponseBytes,
	}
}
