// Package persistence provides the key-value storage used to persist plugin
// state. Every backend stores opaque byte values under string keys.
//
// Supported backends:
// - Memory: For development and testing
// - File: One JSON file per key, single-node deployments
// - Bolt: Embedded single-file database
// - Redis: Shared deployments
// - SQL: postgres, mysql or sqlite through GORM
// - Mongo: One document per key
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeBolt   StoreType = "bolt"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
	StoreTypeMongo  StoreType = "mongo"
)

// Store is a key-value store. Get returns ErrNotFound for a missing key and
// Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error

	// Close closes the store and releases resources
	Close() error
}

// StoreConfig is the configuration for all store implementations
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type"`

	// BaseDir is the directory for the file backend
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	Bolt  BoltStoreConfig  `json:"bolt" yaml:"bolt"`
	Redis RedisStoreConfig `json:"redis" yaml:"redis"`
	SQL   SQLStoreConfig   `json:"sql" yaml:"sql"`
	Mongo MongoStoreConfig `json:"mongo" yaml:"mongo"`
}

// BoltStoreConfig contains BoltDB-specific configuration
type BoltStoreConfig struct {
	// Path is the database file
	Path string `json:"path" yaml:"path"`

	// Bucket holds every key
	Bucket string `json:"bucket" yaml:"bucket"`

	// OpenTimeout bounds the wait for the file lock
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout"`
}

// RedisStoreConfig contains Redis-specific configuration
type RedisStoreConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	Password     string `json:"password" yaml:"password"`
	DB           int    `json:"db" yaml:"db"`
	PoolSize     int    `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int    `json:"min_idle_conns" yaml:"min_idle_conns"`
	TLS          bool   `json:"tls" yaml:"tls"`

	// KeyPrefix is the prefix for all Redis keys
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// SQLStoreConfig contains SQL-specific configuration
type SQLStoreConfig struct {
	// Driver is one of postgres, mysql, sqlite
	Driver          string        `json:"driver" yaml:"driver"`
	DSN             string        `json:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// MongoStoreConfig contains MongoDB-specific configuration
type MongoStoreConfig struct {
	URI            string        `json:"uri" yaml:"uri"`
	Database       string        `json:"database" yaml:"database"`
	Collection     string        `json:"collection" yaml:"collection"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    StoreTypeMemory,
		BaseDir: "./data",
		Bolt: BoltStoreConfig{
			Path:        "./data/plugstore.db",
			Bucket:      "plugstore",
			OpenTimeout: 5 * time.Second,
		},
		Redis: RedisStoreConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "plugstore:",
		},
		SQL: SQLStoreConfig{
			Driver:       "sqlite",
			DSN:          "./data/plugstore.sqlite",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Mongo: MongoStoreConfig{
			Database:       "plugstore",
			Collection:     "kv_entries",
			ConnectTimeout: 10 * time.Second,
		},
	}
}

// validateKey rejects keys no backend can store.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("%w: key %q", ErrInvalidInput, key)
	}
	return nil
}
