package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NewStore creates a Store for the configured backend.
func NewStore(ctx context.Context, config StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "persistence"), zap.String("backend", string(config.Type)))

	var (
		store Store
		err   error
	)
	switch config.Type {
	case StoreTypeMemory, "":
		store = NewMemoryStore()
	case StoreTypeFile:
		store, err = NewFileStore(config.BaseDir)
	case StoreTypeBolt:
		store, err = NewBoltStore(config.Bolt)
	case StoreTypeRedis:
		store, err = NewRedisStore(ctx, config.Redis)
	case StoreTypeSQL:
		store, err = NewSQLStore(config.SQL, logger)
	case StoreTypeMongo:
		store, err = NewMongoStore(ctx, config.Mongo)
	default:
		return nil, fmt.Errorf("%w: unknown store type %q", ErrInvalidInput, config.Type)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("store opened")
	return store, nil
}
