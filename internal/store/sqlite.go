package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qvu3/bb-chatbot/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	saveMaxRetries   = 3
	saveRetryBackoff = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository. dsn is a file path,
// optionally prefixed with "sqlite://" and optionally carrying driver query
// parameters.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	path, params, _ := strings.Cut(strings.TrimPrefix(dsn, "sqlite://"), "?")
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode and a busy timeout for concurrent writers.
	if params == "" {
		params = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", path+"?"+params)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS subscribers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveEmail inserts email unless it already exists. Busy/locked errors are
// retried with exponential backoff.
func (s *SQLiteStore) SaveEmail(ctx context.Context, email string) (SaveResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return AlreadyPresent, fmt.Errorf("save email: empty address")
	}

	for i := 0; i < saveMaxRetries; i++ {
		result, err := s.saveEmailOnce(ctx, email)
		if err == nil {
			return result, nil
		}

		if shared.IsSQLiteConflictError(err) && i < saveMaxRetries-1 {
			delay := saveRetryBackoff * time.Duration(1<<i) // 50ms, 100ms
			slog.Debug("SaveEmail hit a locked database, retrying", "attempt", i+1, "delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return AlreadyPresent, fmt.Errorf("save email: %w", ctx.Err())
			}
		}

		return AlreadyPresent, fmt.Errorf("save email after %d attempts: %w", i+1, err)
	}

	return AlreadyPresent, fmt.Errorf("save email: retries exhausted")
}

func (s *SQLiteStore) saveEmailOnce(ctx context.Context, email string) (SaveResult, error) {
	query := `
		INSERT INTO subscribers (email, created_at) VALUES (?, ?)
		ON CONFLICT(email) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, email, time.Now().Unix())
	if err != nil {
		if shared.IsSQLiteConstraintError(err) {
			return AlreadyPresent, nil
		}
		return AlreadyPresent, fmt.Errorf("insert subscriber: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return AlreadyPresent, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return AlreadyPresent, nil
	}
	return Saved, nil
}

// CountEmails returns the number of stored emails.
func (s *SQLiteStore) CountEmails(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

var _ Repository = (*SQLiteStore)(nil)
