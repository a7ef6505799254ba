// Package store provides the embedded SQLite storage layer for vita.
//
// One database file holds all local state: the session key-value table
// and one table per entity kind (nutrition_log, daily_survey,
// body_measurement). Every entity table carries the owner scoping
// column, the dirty flag, and the soft-delete tombstone column.
//
// The database runs in embedded mode (ncruces/go-sqlite3, pure Go) with
// WAL enabled so the daemon's pull cycle can read while the CLI writes.
//
// Schema evolution is versioned and additive: see migrate.go. Existing
// rows are never dropped to recover from drift.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNoSession is returned by every scoped operation when no active
// user is resolved. It is an expected state during the window between
// app start and login, not a failure; callers decide whether to queue,
// reject, or report "not logged in".
var ErrNoSession = errors.New("no active session")

// Store wraps the SQLite connection with vita-specific functionality.
type Store struct {
	conn *sql.DB
	path string

	// Session cache. Guarded by mu; loaded lazily from the session
	// table on first read.
	mu           sync.Mutex
	activeUser   string
	activeLoaded bool
}

// Open creates a new database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent
// reads. Parent directories are created as needed. The caller MUST
// call Close() when done.
//
// Example:
//
//	st, err := store.Open(filepath.Join(dataDir, "vita.db"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	if err := st.Migrate(ctx); err != nil {
//	    return err
//	}
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	st := &Store{
		conn: conn,
		path: path,
	}

	// WAL lets the daemon read while a command writes.
	if _, err := st.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := st.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := st.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return st, nil
}

// RawDB returns the underlying sql.DB connection.
// Useful for integrating with libraries that expect *sql.DB.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}
