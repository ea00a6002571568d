package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store is a small key/value table of serialized interface records.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func OpenStore(ctx context.Context, path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Load returns the payload stored under key, or found=false.
func (s *Store) Load(ctx context.Context, key string) (payload []byte, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.withRetry("load record", func() error {
		var raw string
		qErr := s.db.QueryRowContext(ctx, `SELECT record FROM interfaces WHERE module_path = ?`, key).Scan(&raw)
		switch {
		case errors.Is(qErr, sql.ErrNoRows):
			found = false
			return nil
		case qErr != nil:
			return qErr
		}
		payload, found = []byte(raw), true
		return nil
	})
	return payload, found, err
}

func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save record", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO interfaces (module_path, record, updated_at_utc) VALUES (?, ?, ?)
ON CONFLICT(module_path) DO UPDATE SET
  record=excluded.record,
  updated_at_utc=excluded.updated_at_utc
`, key, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("delete record", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM interfaces WHERE module_path = ?`, key)
		return err
	})
}

// Purge removes every record and returns how many there were.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.withRetry("purge records", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM interfaces`)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.withRetry("count records", func() error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interfaces`).Scan(&n)
	})
	return n, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports whether err means the database file itself is
// unusable rather than a single record.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
