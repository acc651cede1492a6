package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"trackbuf/internal/config"
)

// Store manages telemetry persistence backed by SQLite.
//
// A Store is safe for concurrent use. Concurrent writers are serialized by
// SQLite's write lock; callers never need their own locking.
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

const (
	busyTimeoutMillis       = 5000
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	// Extended result codes carry the primary code in the low byte.
	return sqliteErr.Code() & 0xff, true
}

func isSQLiteBusy(err error) bool {
	code, ok := sqliteCode(err)
	return ok && (code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED)
}

// classify maps driver errors onto the package sentinels while keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isClosedDB(err) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	code, ok := sqliteCode(err)
	if !ok {
		return err
	}
	switch code {
	case sqlite3.SQLITE_CONSTRAINT:
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_FULL, sqlite3.SQLITE_CORRUPT,
		sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_READONLY:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return err
}

// isClosedDB reports errors from a pool closed underneath an in-flight call.
// database/sql does not export its closed-database error.
func isClosedDB(err error) bool {
	return errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "sql: database is closed")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// withTx runs fn inside a single write transaction. The transaction is rolled
// back unless fn and the commit both succeed, so no partial write is ever
// visible. Busy contention restarts the whole transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func (s *Store) available() error {
	if s == nil || s.db == nil || s.closed.Load() {
		return ErrStorageUnavailable
	}
	return nil
}

func buildDSN(path string) string {
	query := url.Values{}
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "synchronous(FULL)")
	query.Set("_txlock", "immediate")
	return "file:" + path + "?" + query.Encode()
}

// Open initializes or connects to the telemetry buffer database configured
// under paths.data_dir.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrStorageUnavailable)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath initializes or connects to the telemetry buffer database at path.
func OpenPath(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrStorageUnavailable)
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", ErrStorageUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %w", ErrStorageUnavailable, err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file backing the store.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection. Operations on a closed
// store fail with ErrStorageUnavailable.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
