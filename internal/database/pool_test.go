package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *gorm.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return mock, gormDB
}

func TestConfig_Normalize(t *testing.T) {
	got := Config{Driver: "postgres", MaxOpenConns: 25}.normalize()
	assert.Equal(t, 25, got.MaxOpenConns)
	assert.Equal(t, 2, got.MaxIdleConns)
	assert.Equal(t, time.Hour, got.ConnMaxLifetime)

	lite := Config{Driver: "sqlite", MaxOpenConns: 25, ConnMaxLifetime: time.Minute}.normalize()
	assert.Equal(t, 1, lite.MaxOpenConns)
	assert.Equal(t, 1, lite.MaxIdleConns)
	assert.Zero(t, lite.ConnMaxLifetime)
	assert.Zero(t, lite.ConnMaxIdleTime)
}

func TestNewPoolManager(t *testing.T) {
	_, gormDB := setupMockDB(t)

	manager, err := NewPoolManager(gormDB, Config{MaxOpenConns: 7}, zap.NewNop())
	require.NoError(t, err)

	assert.Same(t, gormDB, manager.DB())
	assert.Equal(t, 7, manager.Stats().MaxOpenConnections)
}

func TestNewPoolManager_NilDB(t *testing.T) {
	_, err := NewPoolManager(nil, DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestPoolManager_Ping(t *testing.T) {
	mock, gormDB := setupMockDB(t)
	manager, err := NewPoolManager(gormDB, Config{}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, manager.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	assert.Error(t, manager.Ping(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_Transaction(t *testing.T) {
	mock, gormDB := setupMockDB(t)
	manager, err := NewPoolManager(gormDB, Config{}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, manager.Transaction(context.Background(), 1, func(tx *gorm.DB) error {
		return nil
	}))

	// permanent errors are not retried
	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	err = manager.Transaction(context.Background(), 3, func(tx *gorm.DB) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_TransactionRetriesTransient(t *testing.T) {
	mock, gormDB := setupMockDB(t)
	manager, err := NewPoolManager(gormDB, Config{}, zap.NewNop())
	require.NoError(t, err)

	attempts := 0
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()
	err = manager.Transaction(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_TransactionGivesUp(t *testing.T) {
	mock, gormDB := setupMockDB(t)
	manager, err := NewPoolManager(gormDB, Config{}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = manager.Transaction(context.Background(), 2, func(tx *gorm.DB) error {
		return errors.New("Deadlock detected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestPoolManager_Close(t *testing.T) {
	mock, gormDB := setupMockDB(t)
	manager, err := NewPoolManager(gormDB, Config{}, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	assert.ErrorIs(t, manager.Ping(context.Background()), ErrPoolClosed)
	assert.ErrorIs(t, manager.Transaction(context.Background(), 1, func(*gorm.DB) error { return nil }), ErrPoolClosed)
}

func TestOpen_SQLite(t *testing.T) {
	manager, err := Open(Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	assert.NoError(t, manager.Ping(context.Background()))
	assert.Equal(t, 1, manager.Stats().MaxOpenConnections)

	// nested directories are created for file databases
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.sqlite")
	fileDB, err := Open(Config{Driver: "sqlite", DSN: path}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fileDB.Close() })
	assert.NoError(t, fileDB.Ping(context.Background()))
	assert.DirExists(t, filepath.Dir(path))
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite"} {
		d, err := Dialector(driver, "dsn")
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector("oracle", "dsn")
	assert.Error(t, err)
	_, err = Dialector("sqlite", "")
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.True(t, isTransient(errors.New("Deadlock detected")))
	assert.True(t, isTransient(errors.New("pq: could not serialize access (SQLSTATE 40001)")))
	assert.True(t, isTransient(errors.New("database is locked")))
	assert.True(t, isTransient(errors.New("Error 1205: Lock wait timeout exceeded")))
	assert.False(t, isTransient(errors.New("syntax error")))
}
