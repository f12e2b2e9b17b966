package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
)

// BoltStore implements Store using BoltDB. All keys live in one bucket.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// NewBoltStore opens (or creates) the database file in cfg.Path.
func NewBoltStore(cfg BoltStoreConfig) (*BoltStore, error) {
	if cfg.Path == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bolt path and bucket are required", ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{Timeout: cfg.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	bucket := []byte(cfg.Bucket)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	return &BoltStore{db: db, bucket: bucket}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(s.bucket).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// data is only valid inside the transaction
		out = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	return out, nil
}

func (s *BoltStore) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	}))
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	}))
}

func (s *BoltStore) Ping(context.Context) error {
	return s.wrap(s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return fmt.Errorf("bucket %q missing", s.bucket)
		}
		return nil
	}))
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) wrap(err error) error {
	if err == bolt.ErrDatabaseNotOpen {
		return ErrStoreClosed
	}
	return err
}
