// Package sqlite implements the store contract on an embedded SQLite
// database in WAL mode, so presentation reads stay concurrent with the
// single writer cycle.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// queries carries every read and write of the contract. It runs against the
// root connection when embedded in Store and against an open transaction
// when embedded in Tx.
type queries struct {
	db *gorm.DB
}

// Store is the SQLite-backed index database.
type Store struct {
	queries
	log *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open migrates the database at path and returns a ready Store.
func Open(path string, log *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	if err := Migrate(path); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	log.Info("index database opened", zap.String("path", path))
	return &Store{queries: queries{db: db}, log: log}, nil
}

// dsn builds the connection string. WAL keeps readers unblocked during the
// writer cycle; the busy timeout covers the brief WAL checkpoint locks.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
}

// Begin opens one atomic unit of index work.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &Tx{queries: queries{db: tx}}, nil
}

// AcquireSync claims the single-writer flag. The compare-and-set on the
// persisted row is what rejects a second concurrent cycle, including one
// started by another process on the same database.
func (s *Store) AcquireSync(ctx context.Context) (acquired bool, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("acquire_sync", err, started)
	}()

	res := s.db.WithContext(ctx).
		Model(&model.SyncState{}).
		Where("id = ? AND in_progress = ?", model.SyncStateID, false).
		Update("in_progress", true)
	if res.Error != nil {
		return false, wrapErr("acquire sync flag", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseSync clears the single-writer flag.
func (s *Store) ReleaseSync(ctx context.Context) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("release_sync", err, started)
	}()

	res := s.db.WithContext(ctx).
		Model(&model.SyncState{}).
		Where("id = ?", model.SyncStateID).
		Update("in_progress", false)
	if res.Error != nil {
		return wrapErr("release sync flag", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("release sync flag: %w", store.ErrNotFound)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap database handle: %w", err)
	}
	return db.Close()
}

// Tx is one open index transaction.
type Tx struct {
	queries
}

var _ store.Tx = (*Tx)(nil)

// Commit makes the transaction's writes visible to readers.
func (t *Tx) Commit() error {
	if err := t.db.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the transaction's writes.
func (t *Tx) Rollback() error {
	if err := t.db.Rollback().Error; err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// wrapErr folds driver errors into the store taxonomy.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
