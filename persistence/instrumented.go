package persistence

import (
	"context"
	"errors"
	"time"
)

// OperationRecorder receives the outcome of every store call.
type OperationRecorder interface {
	RecordStoreOperation(backend, operation string, duration time.Duration, err error)
}

// Instrument wraps store so each call is reported to rec under backend.
// A missing key is not reported as an error.
func Instrument(store Store, backend string, rec OperationRecorder) Store {
	if rec == nil {
		return store
	}
	return &instrumentedStore{Store: store, backend: backend, rec: rec}
}

type instrumentedStore struct {
	Store
	backend string
	rec     OperationRecorder
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := s.Store.Get(ctx, key)
	recErr := err
	if errors.Is(err, ErrNotFound) {
		recErr = nil
	}
	s.rec.RecordStoreOperation(s.backend, "get", time.Since(start), recErr)
	return v, err
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.Store.Set(ctx, key, value)
	s.rec.RecordStoreOperation(s.backend, "set", time.Since(start), err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.Store.Delete(ctx, key)
	s.rec.RecordStoreOperation(s.backend, "delete", time.Since(start), err)
	return err
}
