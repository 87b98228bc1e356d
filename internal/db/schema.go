package db

// SchemaVersion is the current database schema version
const SchemaVersion = 2

const schema = `
-- Tasks table (the record store)
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    completed INTEGER NOT NULL DEFAULT 0,
    deleted_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    sync_status TEXT NOT NULL DEFAULT 'pending',
    last_synced_at TEXT,
    server_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_sync_status ON tasks(sync_status);

-- Pending operations, drained by the sync engine in rowid order
CREATE TABLE IF NOT EXISTS sync_queue (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    data TEXT NOT NULL DEFAULT '{}',
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_task ON sync_queue(task_id);

-- Outcome of the most recent sync pass (single row)
CREATE TABLE IF NOT EXISTS sync_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    last_sync_at TEXT,
    last_success INTEGER NOT NULL DEFAULT 0,
    last_errors INTEGER NOT NULL DEFAULT 0,
    last_total INTEGER NOT NULL DEFAULT 0
);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Migration is one schema step. Present, when set, reports that the change
// is already in place (a fresh schema may include it), so only the version
// is recorded.
type Migration struct {
	Version     int
	Description string
	SQL         string
	Present     func(db *DB) (bool, error)
}

// Migrations in version order.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL:         schema,
	},
	{
		Version:     2,
		Description: "Track last attempt time on queued operations for retry backoff",
		SQL:         `ALTER TABLE sync_queue ADD COLUMN last_attempt_at TEXT;`,
		Present: func(db *DB) (bool, error) {
			return db.columnExists("sync_queue", "last_attempt_at")
		},
	},
}
