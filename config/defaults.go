// =============================================================================
// 📦 plugstore 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultStoreKey 插件状态的持久化键
const DefaultStoreKey = "chat-next-web-plugin"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Store:     DefaultStoreConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Mongo:     DefaultMongoConfig(),
		Plugins:   DefaultPluginsConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
		ProxyTimeout:    time.Minute,
	}
}

// DefaultStoreConfig 返回默认持久化配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:       "file",
		Key:        DefaultStoreKey,
		Dir:        "./data",
		BoltPath:   "./data/plugstore.db",
		BoltBucket: "plugstore",
		Timeout:    5 * time.Second,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "plugstore:",
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "plugstore",
		Password:        "",
		Name:            "./data/plugstore.sqlite",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultMongoConfig 返回默认 MongoDB 配置
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:            "",
		Database:       "plugstore",
		Collection:     "kv_entries",
		ConnectTimeout: 10 * time.Second,
	}
}

// DefaultPluginsConfig 返回默认插件配置
func DefaultPluginsConfig() PluginsConfig {
	return PluginsConfig{
		ProxyURL:           "http://127.0.0.1:8080/api/proxy",
		InvokeTimeout:      0,
		NormalizeBearer:    false,
		MaxResponseBytes:   10 << 20, // 10 MB
		PurgeCacheOnDelete: false,
		SeedURL:            "",
		SeedTimeout:        30 * time.Second,
		SeedConcurrency:    8,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "plugstore",
		SampleRate:   0.1,
	}
}
