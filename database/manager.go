package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver "sqlite3"
	_ "modernc.org/sqlite"          // pure-Go SQLite driver "sqlite"

	"github.com/noiddea/dash/logging"
)

const (
	// dirPermissions is the permission mode for the app data directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	DefaultFilename  = "database.db"
	DefaultDriver    = "sqlite3"
	DefaultCacheSize = -8192
)

// Config contains connection settings. These map to the database section of
// the configuration file.
type Config struct {
	Filename    string
	Driver      string
	CacheSize   int
	BusyTimeout int // milliseconds; zero keeps the engine default
}

// DataDirResolver locates the application's private data directory.
type DataDirResolver interface {
	AppDataDir() (string, error)
}

// State is the lifecycle state of the Manager's connection.
type State int

const (
	StateUninitialized State = iota
	StateOpening
	StateReady
	StateFailedOpen
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateFailedOpen:
		return "failed_open"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Manager lazily opens and memoizes the single database connection of the
// process. It is created once at startup and passed to every command handler.
type Manager struct {
	cfg    Config
	dirs   DataDirResolver
	logger *logging.Logger

	mu      sync.Mutex
	state   State
	handle  *Handle
	lastErr error
}

func NewManager(cfg Config, dirs DataDirResolver, logger *logging.Logger) *Manager {
	if cfg.Filename == "" {
		cfg.Filename = DefaultFilename
	}
	if cfg.Driver == "" {
		cfg.Driver = DefaultDriver
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		cfg:    cfg,
		dirs:   dirs,
		logger: logger.With("component", "database"),
	}
}

// Acquire returns the shared connection handle, opening it on first use.
//
// Opening:
//  1. Resolves the app data directory and creates it if missing
//  2. Opens (or creates) the database file inside it
//  3. Switches to WAL journaling and verifies the engine reports "wal"
//  4. Enables and verifies foreign key enforcement
//  5. Raises the page cache size, ignoring failures
//
// A failed open leaves the Manager in StateFailedOpen; the next call retries
// from scratch. Once Ready, the pragmas are never applied again.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return m.handle, nil
	}

	m.state = StateOpening
	handle, err := m.open(ctx)
	if err != nil {
		m.state = StateFailedOpen
		m.lastErr = err
		m.logger.Warn("database open failed", "error", err)
		return nil, err
	}

	m.state = StateReady
	m.lastErr = nil
	m.handle = handle
	m.logger.Info("database opened", "path", handle.Path(), "driver", m.cfg.Driver)
	return handle, nil
}

// State returns the current lifecycle state and the error of the last failed
// open, if any.
func (m *Manager) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.lastErr
}

// Driver returns the database/sql driver in use, or the configured one when
// the connection is not open yet.
func (m *Manager) Driver() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != nil {
		return m.handle.DriverName()
	}
	return m.cfg.Driver
}

// Path returns where the database file lives, without opening it.
func (m *Manager) Path() (string, error) {
	dir, err := m.dirs.AppDataDir()
	if err != nil {
		return "", &InitError{Stage: StageResolveDir, Err: err}
	}
	return filepath.Join(dir, m.cfg.Filename), nil
}

// Exists reports whether the database file is present on disk.
func (m *Manager) Exists() (bool, error) {
	path, err := m.Path()
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("checking database file: %w", err)
	}
	return true, nil
}

// Close closes the connection if it was opened. It is meant for process
// shutdown; a later Acquire would open a new connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.handle = nil
	m.state = StateUninitialized
	return err
}

func (m *Manager) open(ctx context.Context) (*Handle, error) {
	path, err := m.Path()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, &InitError{Stage: StageCreateDir, Err: err}
	}

	db, err := sqlx.Open(m.cfg.Driver, path)
	if err != nil {
		return nil, &InitError{Stage: StageOpen, Err: err}
	}

	handle, err := NewHandle(ctx, db, path)
	if err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, &InitError{Stage: StageOpen, Err: err}
	}

	err = handle.Do(ctx, func(conn *sqlx.Conn) error {
		return m.applyPragmas(ctx, conn)
	})
	if err != nil {
		handle.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, err
	}

	// Owner read/write only. The -wal and -shm files inherit the process umask.
	_ = os.Chmod(path, filePermissions) //nolint:errcheck // not fatal on filesystems without modes

	return handle, nil
}

func (m *Manager) applyPragmas(ctx context.Context, conn *sqlx.Conn) error {
	// journal_mode returns the mode actually in effect, which is not "wal"
	// for in-memory databases or filesystems without shared memory support.
	var mode string
	if err := conn.QueryRowxContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
		return &InitError{Stage: StageJournalMode, Err: err}
	}
	if !strings.EqualFold(mode, "wal") {
		return &InitError{Stage: StageJournalMode, Err: fmt.Errorf("%w: got %q", ErrWALUnavailable, mode)}
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return &InitError{Stage: StageForeignKeys, Err: err}
	}
	// Builds without foreign key support accept the pragma silently.
	var fk int
	if err := conn.QueryRowxContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		return &InitError{Stage: StageForeignKeys, Err: err}
	}
	if fk != 1 {
		return &InitError{Stage: StageForeignKeys, Err: ErrForeignKeysUnsupported}
	}

	if m.cfg.BusyTimeout > 0 {
		stmt := fmt.Sprintf("PRAGMA busy_timeout = %d", m.cfg.BusyTimeout)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return &InitError{Stage: StageBusyTimeout, Err: err}
		}
	}

	if m.cfg.CacheSize != 0 {
		stmt := fmt.Sprintf("PRAGMA cache_size = %d", m.cfg.CacheSize)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			m.logger.Debug("cache size hint ignored", "error", err)
		}
	}

	return nil
}
