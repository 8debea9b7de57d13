package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists the engine records in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// One connection: transactions serialize in-process and :memory: databases
	// stay on a single handle.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// View runs fn in a transaction that is always rolled back.
func (s *SQLiteStore) View(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(newRecordTx(&sqliteKV{ctx: ctx, tx: tx}, true))
}

// Update runs fn in a transaction and commits it if fn returns nil.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRecordTx(&sqliteKV{ctx: ctx, tx: tx}, false)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", busyAsConflict(err))
	}
	return nil
}

// busyAsConflict reports a write that lost the database lock to another
// connection as ErrConflict, so a WAL commit from a second process is
// replayed like any other stale version.
func busyAsConflict(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

type sqliteKV struct {
	ctx context.Context
	tx  *sql.Tx
}

func (k *sqliteKV) get(key string) ([]byte, int64, error) {
	var value string
	var version int64
	err := k.tx.QueryRowContext(k.ctx,
		`SELECT value, version FROM records WHERE key = ?`, key,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return []byte(value), version, nil
}

func (k *sqliteKV) put(key string, value []byte, expected int64) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var res sql.Result
	var err error
	if expected == 0 {
		res, err = k.tx.ExecContext(k.ctx, `
			INSERT INTO records (key, value, version, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, string(value), now)
	} else {
		res, err = k.tx.ExecContext(k.ctx, `
			UPDATE records SET value = ?, version = version + 1, updated_at = ?
			WHERE key = ? AND version = ?
		`, string(value), now, key, expected)
	}
	if err != nil {
		return busyAsConflict(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
