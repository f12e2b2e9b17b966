package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/plugstore/internal/database"
)

// kvEntry is the row layout of the sql backend.
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     []byte
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLStore implements Store on a relational database through GORM.
type SQLStore struct {
	pool *database.PoolManager
}

// NewSQLStore opens the database described by cfg and migrates the table.
func NewSQLStore(cfg SQLStoreConfig, logger *zap.Logger) (*SQLStore, error) {
	pool, err := database.Open(database.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLStoreWithPool(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreWithPool uses an existing pool and migrates the table.
func NewSQLStoreWithPool(pool *database.PoolManager) (*SQLStore, error) {
	if err := pool.DB().AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &SQLStore{pool: pool}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var entry kvEntry
	err := s.pool.DB().WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	entry := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.pool.Transaction(ctx, 3, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
	})
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.pool.DB().WithContext(ctx).Delete(&kvEntry{Key: key}).Error
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *SQLStore) Close() error {
	return s.pool.Close()
}
