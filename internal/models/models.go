package models

import (
	"encoding/json"
	"time"
)

// SyncStatus represents where a task stands relative to the remote authority
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusError   SyncStatus = "error"
)

// Operation is the kind of mutation a queue item carries
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Task is a single entry in the task list
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Completed    bool       `json:"completed"`
	Deleted      bool       `json:"deleted"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	SyncStatus   SyncStatus `json:"syncStatus"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	ServerID     string     `json:"serverId,omitempty"`
}

// SyncQueueItem is a durable intent to propagate one local mutation.
// RetryCount only ever grows; it is the sole input to abandoning an item.
type SyncQueueItem struct {
	ID            string          `json:"id"`
	TaskID        string          `json:"taskId"`
	Operation     Operation       `json:"operation"`
	Data          json.RawMessage `json:"data"`
	RetryCount    int             `json:"retryCount"`
	LastError     *string         `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt,omitempty"`
}

// IsValidSyncStatus checks if a sync status is valid
func IsValidSyncStatus(s SyncStatus) bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusError:
		return true
	}
	return false
}

// IsValidOperation checks if an operation is valid
func IsValidOperation(op Operation) bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Snapshot serializes the task as queued operation data.
func (t *Task) Snapshot() (json.RawMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Clone returns a copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	c := *t
	if t.LastSyncedAt != nil {
		ts := *t.LastSyncedAt
		c.LastSyncedAt = &ts
	}
	return &c
}

// QueueRemoval says which queue entries to drop alongside a status change.
type QueueRemoval struct {
	AllForTask bool
	ItemIDs    []string
}
