package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 plugstore 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Store 插件状态持久化配置
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Redis 存储后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database SQL 存储后端配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Mongo 存储后端配置
	Mongo MongoConfig `yaml:"mongo" env:"MONGO"`

	// Plugins 插件翻译、调用与种子配置
	Plugins PluginsConfig `yaml:"plugins" env:"PLUGINS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示不单独启动
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 允许的 API Key，为空时不启用 API Key 认证
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// 是否允许通过 ?api_key= 传递 API Key
	AllowQueryAPIKey bool `yaml:"allow_query_api_key" env:"ALLOW_QUERY_API_KEY"`
	// 每个客户端每秒请求数，0 表示不限流
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 允许跨域的来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 本地转发代理等待上游响应头的超时
	ProxyTimeout time.Duration `yaml:"proxy_timeout" env:"PROXY_TIMEOUT"`
	// HTTPS 证书与私钥，均为空时以 HTTP 启动
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
	// JWT 认证配置
	JWT JWTConfig `yaml:"jwt" env:"JWT"`
}

// JWTConfig JWT 认证配置。Secret 与 PublicKey 均为空时不启用。
type JWTConfig struct {
	// HS256 共享密钥
	Secret string `yaml:"secret" env:"SECRET"`
	// RS256 公钥（PEM）
	PublicKey string `yaml:"public_key" env:"PUBLIC_KEY"`
	// 期望的 iss
	Issuer string `yaml:"issuer" env:"ISSUER"`
	// 期望的 aud
	Audience string `yaml:"audience" env:"AUDIENCE"`
}

// Enabled 是否启用 JWT 认证
func (j JWTConfig) Enabled() bool {
	return j.Secret != "" || j.PublicKey != ""
}

// StoreConfig 持久化配置
type StoreConfig struct {
	// 后端类型: memory, file, bolt, redis, sql, mongo
	Type string `yaml:"type" env:"TYPE"`
	// 持久化键
	Key string `yaml:"key" env:"KEY"`
	// file 后端目录
	Dir string `yaml:"dir" env:"DIR"`
	// bolt 数据库文件路径
	BoltPath string `yaml:"bolt_path" env:"BOLT_PATH"`
	// bolt bucket 名称
	BoltBucket string `yaml:"bolt_bucket" env:"BOLT_BUCKET"`
	// 单次存储操作超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 是否启用 TLS
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	// 连接 URI
	URI string `yaml:"uri" env:"URI"`
	// 数据库名
	Database string `yaml:"database" env:"DATABASE"`
	// 集合名
	Collection string `yaml:"collection" env:"COLLECTION"`
	// 连接超时
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

// PluginsConfig 插件配置
type PluginsConfig struct {
	// 本地转发代理地址（UsingProxy 插件的请求目标）
	ProxyURL string `yaml:"proxy_url" env:"PROXY_URL"`
	// 单次插件调用超时，0 表示不限制
	InvokeTimeout time.Duration `yaml:"invoke_timeout" env:"INVOKE_TIMEOUT"`
	// 发送规范的 "Bearer <token>" 而不是 " Bearer <token>"
	NormalizeBearer bool `yaml:"normalize_bearer" env:"NORMALIZE_BEARER"`
	// 读取的最大响应体字节数
	MaxResponseBytes int64 `yaml:"max_response_bytes" env:"MAX_RESPONSE_BYTES"`
	// 删除插件时是否同时清理翻译缓存
	PurgeCacheOnDelete bool `yaml:"purge_cache_on_delete" env:"PURGE_CACHE_ON_DELETE"`
	// 种子清单 URL，为空时不导入
	SeedURL string `yaml:"seed_url" env:"SEED_URL"`
	// 种子导入整体超时
	SeedTimeout time.Duration `yaml:"seed_timeout" env:"SEED_TIMEOUT"`
	// 种子 Schema 并发拉取数
	SeedConcurrency int `yaml:"seed_concurrency" env:"SEED_CONCURRENCY"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// ✅ 校验
// =============================================================================

// 支持的存储后端
var storeTypes = map[string]bool{
	"memory": true,
	"file":   true,
	"bolt":   true,
	"redis":  true,
	"sql":    true,
	"mongo":  true,
}

// Validate 校验整份配置，返回所有问题的合并错误
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.Server.validate()...)
	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.Plugins.validate()...)
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, errors.New("telemetry.sample_rate must be between 0 and 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config validation errors: %w", err)
	}
	return nil
}

func (s *ServerConfig) validate() []error {
	var errs []error
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		errs = append(errs, errors.New("invalid HTTP port"))
	}
	if s.MetricsPort < 0 || s.MetricsPort > 65535 {
		errs = append(errs, errors.New("invalid metrics port"))
	}
	if s.MetricsPort != 0 && s.MetricsPort == s.HTTPPort {
		errs = append(errs, errors.New("server.metrics_port must differ from server.http_port"))
	}
	if s.RateLimitRPS < 0 || s.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if (s.TLSCertFile == "") != (s.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tls_cert_file and server.tls_key_file must be set together"))
	}
	if s.ProxyTimeout < 0 {
		errs = append(errs, errors.New("server.proxy_timeout must not be negative"))
	}
	return errs
}

func (c *Config) validateStore() []error {
	var errs []error
	if !storeTypes[c.Store.Type] {
		errs = append(errs, fmt.Errorf("unsupported store type %q", c.Store.Type))
	}
	if c.Store.Key == "" {
		errs = append(errs, errors.New("store key must not be empty"))
	}
	switch c.Store.Type {
	case "file":
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the file store"))
		}
	case "bolt":
		if c.Store.BoltPath == "" {
			errs = append(errs, errors.New("store.bolt_path is required for the bolt store"))
		}
	case "sql":
		if c.Database.DSN() == "" {
			errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
		}
	case "mongo":
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo store"))
		}
	}
	return errs
}

func (p *PluginsConfig) validate() []error {
	var errs []error
	if !absoluteURL(p.ProxyURL) {
		errs = append(errs, errors.New("plugins.proxy_url must be an absolute URL"))
	}
	if p.SeedURL != "" && !absoluteURL(p.SeedURL) {
		errs = append(errs, errors.New("plugins.seed_url must be an absolute URL"))
	}
	if p.SeedConcurrency < 0 {
		errs = append(errs, errors.New("plugins.seed_concurrency must not be negative"))
	}
	if p.InvokeTimeout < 0 {
		errs = append(errs, errors.New("plugins.invoke_timeout must not be negative"))
	}
	return errs
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs()
}

// DSN 返回数据库连接字符串，未知驱动返回空串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
