package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/shared"
	_ "github.com/mattn/go-sqlite3"
)

// busyTimeout is how long a writer waits on a locked database file, in milliseconds.
const busyTimeout = 5000

// OpenDB opens the SQLite database named by cfg.Path and applies the pool limits.
//
// A file database runs in WAL mode. ":memory:" is pinned to one connection, since every
// connection would otherwise get its own empty database.
func OpenDB(ctx context.Context, cfg shared.StorageConfig) (*sql.DB, error) {
	dsn := cfg.Path
	if dsn != ":memory:" {
		q := url.Values{}
		q.Set("_busy_timeout", fmt.Sprint(busyTimeout))
		q.Set("_journal_mode", "WAL")
		dsn = "file:" + cfg.Path + "?" + q.Encode()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Path, err)
	}

	switch {
	case cfg.Path == ":memory:":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return db, nil
}

// OpenSQLite opens the database, brings the schema up to date, and wraps it in a store.
func OpenSQLite(ctx context.Context, cfg shared.StorageConfig, logger *log.Logger) (*SQLiteStore, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	applied, err := Migrate(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.Debug("schema updated", "path", cfg.Path, "versions", applied)
	}
	return NewSQLiteStore(db), nil
}

// SQLiteStore implements [KV] on the migrated kv table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a database whose schema is already migrated. See [OpenSQLite].
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the value for key
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a single key
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// SetMany upserts all values in one transaction
func (s *SQLiteStore) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	now := time.Now()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, query, k, v, now); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return s.DeleteMany(ctx, key)
}

// DeleteMany removes all keys in one transaction
func (s *SQLiteStore) DeleteMany(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", k); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
