package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	dataDir = ".tasksync"
	dbFile  = "tasks.db"
)

// ErrNotFound is returned when a task or queue item does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	baseDir string
}

// Path returns the database file path for a base directory.
func Path(baseDir string) string {
	return filepath.Join(baseDir, dataDir, dbFile)
}

// Open opens an existing database and runs any pending migrations
func Open(baseDir string) (*DB, error) {
	dbPath := Path(baseDir)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'tasksync init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, baseDir: baseDir}
	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Initialize creates the database (if needed) and applies the schema
func Initialize(baseDir string) (*DB, error) {
	dbPath := Path(baseDir)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}
	return FromConn(conn, baseDir)
}

// FromConn wraps an already opened connection, creating the schema if it is
// missing. The write lock lives under baseDir, which is created if needed.
func FromConn(conn *sql.DB, baseDir string) (*DB, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, dataDir), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &DB{conn: conn, baseDir: baseDir}
	if _, err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL keeps reads going while the engine writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Fallback for contention the file lock does not cover (readers)
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	conn.Exec("PRAGMA synchronous=NORMAL")
	return conn, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// BaseDir returns the base directory for the database
func (db *DB) BaseDir() string {
	return db.baseDir
}

// Conn returns the underlying *sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// withWriteLock executes fn while holding an exclusive write lock.
// This prevents concurrent writes from multiple processes.
func (db *DB) withWriteLock(fn func() error) error {
	locker := newWriteLocker(db.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// withTx runs fn in a transaction under the write lock. fn's error rolls
// the transaction back.
func (db *DB) withTx(fn func(tx *sql.Tx) error) error {
	return db.withWriteLock(func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// Timestamps are stored as RFC3339 text in UTC so both sqlite drivers
// round-trip them identically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// parseTime tries the formats the store and older sqlite defaults produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
