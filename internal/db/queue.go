package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/tasksync/internal/models"
)

const queueColumns = `id, task_id, operation, data, retry_count, last_error, created_at, last_attempt_at`

func scanQueueItem(row rowScanner) (*models.SyncQueueItem, error) {
	var (
		item                 models.SyncQueueItem
		op, data, createdAt  string
		lastErr, lastAttempt sql.NullString
	)
	if err := row.Scan(&item.ID, &item.TaskID, &op, &data, &item.RetryCount,
		&lastErr, &createdAt, &lastAttempt); err != nil {
		return nil, err
	}

	var err error
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("queue item %s created_at: %w", item.ID, err)
	}
	if item.LastAttemptAt, err = parseNullTime(lastAttempt); err != nil {
		return nil, fmt.Errorf("queue item %s last_attempt_at: %w", item.ID, err)
	}
	item.Operation = models.Operation(op)
	item.Data = []byte(data)
	if lastErr.Valid {
		msg := lastErr.String
		item.LastError = &msg
	}
	return &item, nil
}

// InsertSyncItem appends an operation to the queue. ID and CreatedAt are
// filled in when unset; RetryCount is always stored as given.
func (db *DB) InsertSyncItem(item *models.SyncQueueItem) error {
	return db.withWriteLock(func() error {
		return insertSyncItem(db.conn, item)
	})
}

func insertSyncItem(ex execer, item *models.SyncQueueItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	data := string(item.Data)
	if data == "" {
		data = "{}"
	}

	_, err := ex.Exec(`
		INSERT INTO sync_queue (id, task_id, operation, data, retry_count, last_error, created_at, last_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.TaskID, item.Operation, data, item.RetryCount,
		nullString(item.LastError), formatTime(item.CreatedAt), formatNullTime(item.LastAttemptAt))
	if err != nil {
		return fmt.Errorf("insert sync item: %w", err)
	}
	return nil
}

// PendingSyncItems returns every queued item in insertion order.
func (db *DB) PendingSyncItems() ([]*models.SyncQueueItem, error) {
	rows, err := db.conn.Query(`SELECT ` + queueColumns + ` FROM sync_queue ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SyncItemsForTask returns the queued items of one task in insertion order.
func (db *DB) SyncItemsForTask(taskID string) ([]*models.SyncQueueItem, error) {
	rows, err := db.conn.Query(`SELECT `+queueColumns+` FROM sync_queue WHERE task_id = ? ORDER BY rowid`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetSyncItem returns a single queue item.
func (db *DB) GetSyncItem(id string) (*models.SyncQueueItem, error) {
	item, err := scanQueueItem(db.conn.QueryRow(`SELECT `+queueColumns+` FROM sync_queue WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync item %s: %w", id, ErrNotFound)
	}
	return item, err
}

// CountPendingSyncItems returns the queue length.
func (db *DB) CountPendingSyncItems() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&n)
	return n, err
}

// UpdateSyncItemRetry records a failed attempt. The stored retry count
// never goes down, even if a stale count is passed in.
func (db *DB) UpdateSyncItemRetry(id string, retryCount int, lastError string, attemptedAt time.Time) error {
	return db.withWriteLock(func() error {
		res, err := db.conn.Exec(`
			UPDATE sync_queue
			SET retry_count = MAX(retry_count, ?), last_error = ?, last_attempt_at = ?
			WHERE id = ?
		`, retryCount, lastError, formatTime(attemptedAt), id)
		if err != nil {
			return fmt.Errorf("update sync item retry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("sync item %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ApplySyncOutcome loads the task (nil when absent, deleted ones included),
// lets apply adjust its sync columns, and writes the task together with the
// queue removal it returns in a single transaction.
func (db *DB) ApplySyncOutcome(taskID string, apply func(task *models.Task) models.QueueRemoval) error {
	return db.withTx(func(tx *sql.Tx) error {
		task, err := scanTask(tx.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
		if errors.Is(err, sql.ErrNoRows) {
			task = nil
		} else if err != nil {
			return fmt.Errorf("load task %s: %w", taskID, err)
		}

		removal := apply(task)

		if task != nil {
			_, err := tx.Exec(`
				UPDATE tasks SET sync_status = ?, last_synced_at = ?, server_id = ?
				WHERE id = ?
			`, task.SyncStatus, formatNullTime(task.LastSyncedAt), task.ServerID, taskID)
			if err != nil {
				return fmt.Errorf("update task %s sync status: %w", taskID, err)
			}
		}

		switch {
		case removal.AllForTask:
			if _, err := tx.Exec(`DELETE FROM sync_queue WHERE task_id = ?`, taskID); err != nil {
				return fmt.Errorf("delete sync items: %w", err)
			}
		case len(removal.ItemIDs) > 0:
			placeholders := make([]string, len(removal.ItemIDs))
			args := make([]any, len(removal.ItemIDs))
			for i, id := range removal.ItemIDs {
				placeholders[i] = "?"
				args[i] = id
			}
			q := `DELETE FROM sync_queue WHERE id IN (` + strings.Join(placeholders, ",") + `)`
			if _, err := tx.Exec(q, args...); err != nil {
				return fmt.Errorf("delete sync items: %w", err)
			}
		}
		return nil
	})
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
