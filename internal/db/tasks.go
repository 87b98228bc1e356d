package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/tasksync/internal/models"
)

// ListTasksOptions contains filter options for listing tasks
type ListTasksOptions struct {
	IncludeDeleted bool
	SyncStatus     []models.SyncStatus
	Limit          int
}

const taskColumns = `id, title, description, completed, deleted_at, created_at, updated_at, sync_status, last_synced_at, server_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t                     models.Task
		completed             int
		deletedAt, lastSynced sql.NullString
		createdAt, updatedAt  string
		status                string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &completed, &deletedAt,
		&createdAt, &updatedAt, &status, &lastSynced, &t.ServerID); err != nil {
		return nil, err
	}

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("task %s created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("task %s updated_at: %w", t.ID, err)
	}
	if t.LastSyncedAt, err = parseNullTime(lastSynced); err != nil {
		return nil, fmt.Errorf("task %s last_synced_at: %w", t.ID, err)
	}
	t.Completed = completed != 0
	t.Deleted = deletedAt.Valid
	t.SyncStatus = models.SyncStatus(status)
	return &t, nil
}

// QueueItemFunc builds the queue item for a task as it was just written.
type QueueItemFunc func(task *models.Task) (*models.SyncQueueItem, error)

// execer is the write side shared by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// CreateTask inserts a new task in pending state. An empty ID is generated.
func (db *DB) CreateTask(task *models.Task) error {
	return db.CreateTaskQueued(task, nil)
}

// CreateTaskQueued inserts task and appends the queue item built from the
// stored row in one transaction. A nil build queues nothing.
func (db *DB) CreateTaskQueued(task *models.Task, build QueueItemFunc) error {
	return db.withTx(func(tx *sql.Tx) error {
		if err := insertTask(tx, task); err != nil {
			return err
		}
		return appendQueued(tx, task, build)
	})
}

func insertTask(ex execer, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.SyncStatus = models.SyncStatusPending
	task.Deleted = false

	generated := task.ID == ""
	// 8 hex chars leave room for the odd collision; retry a few times
	for attempt := 0; attempt < 3; attempt++ {
		if generated {
			id, err := newTaskID()
			if err != nil {
				return err
			}
			task.ID = id
		}

		_, err := ex.Exec(`
			INSERT INTO tasks (id, title, description, completed, created_at, updated_at, sync_status, server_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, task.ID, task.Title, task.Description, boolToInt(task.Completed),
			formatTime(task.CreatedAt), formatTime(task.UpdatedAt), task.SyncStatus, task.ServerID)
		if err == nil {
			return nil
		}
		if !generated || !strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("insert task: %w", err)
		}
	}
	return fmt.Errorf("insert task: id collision after retries")
}

func appendQueued(ex execer, task *models.Task, build QueueItemFunc) error {
	if build == nil {
		return nil
	}
	item, err := build(task)
	if err != nil {
		return err
	}
	return insertSyncItem(ex, item)
}

// GetTask returns a live task. Soft-deleted tasks are reported as not found.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.conn.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND deleted_at IS NULL`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// GetTaskIncludingDeleted returns a task regardless of its deleted flag.
func (db *DB) GetTaskIncludingDeleted(id string) (*models.Task, error) {
	row := db.conn.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasks returns tasks ordered by creation time
func (db *DB) ListTasks(opts ListTasksOptions) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if !opts.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if len(opts.SyncStatus) > 0 {
		placeholders := make([]string, len(opts.SyncStatus))
		for i, s := range opts.SyncStatus {
			placeholders[i] = "?"
			args = append(args, s)
		}
		query += ` AND sync_status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at, rowid`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask writes the user-editable fields and the deleted flag, stamps
// UpdatedAt and puts the task back to pending. Sync columns are left to
// ApplySyncOutcome.
func (db *DB) UpdateTask(task *models.Task) error {
	return db.UpdateTaskQueued(task, nil)
}

// UpdateTaskQueued is UpdateTask plus the queue item built from the stored
// row, committed together. A nil build queues nothing.
func (db *DB) UpdateTaskQueued(task *models.Task, build QueueItemFunc) error {
	return db.withTx(func(tx *sql.Tx) error {
		if err := updateTask(tx, task); err != nil {
			return err
		}
		return appendQueued(tx, task, build)
	})
}

func updateTask(ex execer, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	task.SyncStatus = models.SyncStatusPending

	res, err := ex.Exec(`
		UPDATE tasks SET
			title = ?,
			description = ?,
			completed = ?,
			deleted_at = CASE WHEN ? THEN COALESCE(deleted_at, ?) ELSE NULL END,
			updated_at = ?,
			sync_status = ?
		WHERE id = ?
	`, task.Title, task.Description, boolToInt(task.Completed),
		boolToInt(task.Deleted), formatTime(task.UpdatedAt),
		formatTime(task.UpdatedAt), task.SyncStatus, task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

// CountTasksBySyncStatus returns live task counts keyed by sync status.
func (db *DB) CountTasksBySyncStatus() (map[models.SyncStatus]int, error) {
	rows, err := db.conn.Query(`
		SELECT sync_status, COUNT(*) FROM tasks
		WHERE deleted_at IS NULL
		GROUP BY sync_status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.SyncStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.SyncStatus(status)] = n
	}
	return counts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
