// =============================================================================
// 📦 plugstore 配置加载器
// =============================================================================
// 配置优先级: 默认值 → YAML 文件 → 环境变量
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("plugstore.yaml").
//	    Load()
//
// YAML 中出现未知字段视为错误，拼错的键不会被静默忽略。
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 环境变量前缀，例如 PLUGSTORE_SERVER_HTTP_PORT
const DefaultEnvPrefix = "PLUGSTORE"

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// WithConfigPath 设置配置文件路径。文件不存在时只使用默认值与环境变量。
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加在环境变量覆盖之后运行的校验器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := decodeFile(l.configPath, cfg); err != nil {
			return nil, err
		}
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// EnvKeys 列出当前前缀下所有可用的环境变量名
func (l *Loader) EnvKeys() []string {
	bindings := envBindings(reflect.TypeOf(Config{}), l.envPrefix, nil)
	keys := make([]string, len(bindings))
	for i, b := range bindings {
		keys[i] = b.key
	}
	return keys
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	root := reflect.ValueOf(cfg).Elem()
	for _, b := range envBindings(root.Type(), l.envPrefix, nil) {
		raw, ok := os.LookupEnv(b.key)
		if !ok || raw == "" {
			continue
		}
		if err := setFromString(root.FieldByIndex(b.index), raw); err != nil {
			return fmt.Errorf("env %s: %w", b.key, err)
		}
	}
	return nil
}
