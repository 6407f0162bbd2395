package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Handle is the process-wide connection to the database file. It pins a
// single physical connection and serializes every operation on it; the
// underlying SQLite handle is not safe for concurrent callers.
type Handle struct {
	mu   sync.Mutex
	db   *sqlx.DB
	conn *sqlx.Conn
	path string
}

// NewHandle pins one connection from db. The pool is capped at a single open
// connection which is never recycled, so per-connection pragmas applied
// through the handle stay in effect for its lifetime.
func NewHandle(ctx context.Context, db *sqlx.DB, path string) (*Handle, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &Handle{db: db, conn: conn, path: path}, nil
}

// Do runs fn with exclusive use of the connection. Callers block until any
// in-flight query, statement or transaction has finished.
func (h *Handle) Do(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return fmt.Errorf("database connection is closed")
	}
	return fn(h.conn)
}

// Path returns the filesystem path of the database file.
func (h *Handle) Path() string {
	return h.path
}

// DriverName returns the database/sql driver the handle was opened with.
func (h *Handle) DriverName() string {
	return h.db.DriverName()
}

// Close releases the pinned connection and closes the pool.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return nil
	}
	connErr := h.conn.Close()
	h.conn = nil
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	if connErr != nil {
		return fmt.Errorf("closing connection: %w", connErr)
	}
	return nil
}
