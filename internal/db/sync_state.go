package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncState summarizes the most recent completed sync pass.
type SyncState struct {
	LastSyncAt  *time.Time
	LastSuccess int
	LastErrors  int
	LastTotal   int
}

// GetSyncState returns the last recorded pass. A store that has never
// synced returns a zero SyncState.
func (db *DB) GetSyncState() (*SyncState, error) {
	var (
		s        SyncState
		lastSync sql.NullString
	)
	err := db.conn.QueryRow(`
		SELECT last_sync_at, last_success, last_errors, last_total
		FROM sync_state WHERE id = 1
	`).Scan(&lastSync, &s.LastSuccess, &s.LastErrors, &s.LastTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	if s.LastSyncAt, err = parseNullTime(lastSync); err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return &s, nil
}

// RecordSyncRun stores the outcome of a pass.
func (db *DB) RecordSyncRun(at time.Time, success, errCount, total int) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO sync_state (id, last_sync_at, last_success, last_errors, last_total)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				last_sync_at = excluded.last_sync_at,
				last_success = excluded.last_success,
				last_errors = excluded.last_errors,
				last_total = excluded.last_total
		`, formatTime(at), success, errCount, total)
		if err != nil {
			return fmt.Errorf("record sync run: %w", err)
		}
		return nil
	})
}
