// Package sqlite implements the durable key-value store and the kline cache
// on a local SQLite database (WAL mode, single writer connection).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stockdash/internal/model"
)

const defaultBarTTL = 10 * time.Minute

// Config configures the SQLite store.
type Config struct {
	DBPath string        // path to the database file, e.g. "data/stockdash.db"
	BarTTL time.Duration // kline cache TTL, default 10m
	Logger *slog.Logger
}

// Store is a model.KVStore and model.BarCache backed by SQLite.
type Store struct {
	db     *sql.DB
	barTTL time.Duration
	now    func() time.Time
}

var (
	_ model.KVStore  = (*Store)(nil)
	_ model.BarCache = (*Store)(nil)
)

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database and applies the schema.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	if cfg.BarTTL <= 0 {
		cfg.BarTTL = defaultBarTTL
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("sqlite store opened", "path", cfg.DBPath)
	}
	return &Store{db: db, barTTL: cfg.BarTTL, now: time.Now}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT    PRIMARY KEY,
			value      TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bars (
			code       TEXT    NOT NULL,
			period     TEXT    NOT NULL,
			seq        INTEGER NOT NULL,
			date       TEXT    NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			amount     REAL,
			PRIMARY KEY (code, period, seq)
		);

		CREATE TABLE IF NOT EXISTS bars_fetched (
			code       TEXT    NOT NULL,
			period     TEXT    NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (code, period)
		);
	`)
	return err
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
