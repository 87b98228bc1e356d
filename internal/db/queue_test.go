package db

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/marcus/tasksync/internal/models"
)

func enqueue(t *testing.T, database *DB, taskID string, op models.Operation) *models.SyncQueueItem {
	t.Helper()
	item := &models.SyncQueueItem{
		TaskID:    taskID,
		Operation: op,
		Data:      json.RawMessage(`{"id":"` + taskID + `"}`),
	}
	if err := database.InsertSyncItem(item); err != nil {
		t.Fatalf("InsertSyncItem failed: %v", err)
	}
	return item
}

func TestInsertSyncItem_AssignsIDAndKeepsOrder(t *testing.T) {
	database := newTestDB(t)

	first := enqueue(t, database, "tk-1", models.OperationCreate)
	second := enqueue(t, database, "tk-2", models.OperationCreate)
	third := enqueue(t, database, "tk-1", models.OperationUpdate)

	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("queue ids not unique: %q %q", first.ID, second.ID)
	}

	items, err := database.PendingSyncItems()
	if err != nil {
		t.Fatalf("PendingSyncItems failed: %v", err)
	}
	want := []string{first.ID, second.ID, third.ID}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, item := range items {
		if item.ID != want[i] {
			t.Errorf("items[%d] = %s, want %s", i, item.ID, want[i])
		}
		if item.RetryCount != 0 || item.LastError != nil || item.LastAttemptAt != nil {
			t.Errorf("items[%d] should be fresh: %+v", i, item)
		}
	}
	if string(items[2].Data) != `{"id":"tk-1"}` {
		t.Errorf("data = %s", items[2].Data)
	}

	n, err := database.CountPendingSyncItems()
	if err != nil || n != 3 {
		t.Errorf("CountPendingSyncItems = (%d, %v), want 3", n, err)
	}
}

func TestUpdateSyncItemRetry_NeverDecreases(t *testing.T) {
	database := newTestDB(t)
	item := enqueue(t, database, "tk-1", models.OperationCreate)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := database.UpdateSyncItemRetry(item.ID, 2, "boom", at); err != nil {
		t.Fatalf("UpdateSyncItemRetry failed: %v", err)
	}
	if err := database.UpdateSyncItemRetry(item.ID, 1, "stale", at); err != nil {
		t.Fatalf("UpdateSyncItemRetry failed: %v", err)
	}

	got, err := database.GetSyncItem(item.ID)
	if err != nil {
		t.Fatalf("GetSyncItem failed: %v", err)
	}
	if got.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", got.RetryCount)
	}
	if got.LastError == nil || *got.LastError != "stale" {
		t.Errorf("LastError = %v, want latest message", got.LastError)
	}
	if got.LastAttemptAt == nil || !got.LastAttemptAt.Equal(at) {
		t.Errorf("LastAttemptAt = %v, want %v", got.LastAttemptAt, at)
	}

	err = database.UpdateSyncItemRetry("missing", 1, "x", at)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing item err = %v, want ErrNotFound", err)
	}
}

func TestApplySyncOutcome_SyncedRemovesAllForTask(t *testing.T) {
	database := newTestDB(t)
	task := &models.Task{Title: "t"}
	if err := database.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	enqueue(t, database, task.ID, models.OperationCreate)
	enqueue(t, database, task.ID, models.OperationUpdate)
	other := enqueue(t, database, "tk-other", models.OperationCreate)

	now := time.Now().UTC()
	err := database.ApplySyncOutcome(task.ID, func(tk *models.Task) models.QueueRemoval {
		if tk == nil {
			t.Fatal("task should be loaded")
		}
		tk.SyncStatus = models.SyncStatusSynced
		tk.LastSyncedAt = &now
		tk.ServerID = "srv-9"
		return models.QueueRemoval{AllForTask: true}
	})
	if err != nil {
		t.Fatalf("ApplySyncOutcome failed: %v", err)
	}

	got, _ := database.GetTask(task.ID)
	if got.SyncStatus != models.SyncStatusSynced || got.ServerID != "srv-9" || got.LastSyncedAt == nil {
		t.Errorf("task = %+v", got)
	}
	if !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Error("sync outcome must not bump UpdatedAt")
	}
	items, _ := database.PendingSyncItems()
	if len(items) != 1 || items[0].ID != other.ID {
		t.Errorf("remaining = %v, want only the other task's item", items)
	}
}

func TestApplySyncOutcome_ItemIDsOnly(t *testing.T) {
	database := newTestDB(t)
	sent := enqueue(t, database, "tk-1", models.OperationCreate)
	newer := enqueue(t, database, "tk-1", models.OperationUpdate)

	err := database.ApplySyncOutcome("tk-1", func(tk *models.Task) models.QueueRemoval {
		if tk != nil {
			t.Error("absent task should be passed as nil")
		}
		return models.QueueRemoval{ItemIDs: []string{sent.ID}}
	})
	if err != nil {
		t.Fatalf("ApplySyncOutcome failed: %v", err)
	}

	items, _ := database.PendingSyncItems()
	if len(items) != 1 || items[0].ID != newer.ID {
		t.Errorf("remaining = %v, want only %s", items, newer.ID)
	}
}

func TestSyncState_RecordAndRead(t *testing.T) {
	database := newTestDB(t)

	state, err := database.GetSyncState()
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if state.LastSyncAt != nil {
		t.Errorf("fresh store LastSyncAt = %v, want nil", state.LastSyncAt)
	}

	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	if err := database.RecordSyncRun(at, 2, 1, 3); err != nil {
		t.Fatalf("RecordSyncRun failed: %v", err)
	}
	if err := database.RecordSyncRun(at.Add(time.Minute), 5, 0, 5); err != nil {
		t.Fatalf("RecordSyncRun failed: %v", err)
	}

	state, err = database.GetSyncState()
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if state.LastSyncAt == nil || !state.LastSyncAt.Equal(at.Add(time.Minute)) {
		t.Errorf("LastSyncAt = %v", state.LastSyncAt)
	}
	if state.LastSuccess != 5 || state.LastErrors != 0 || state.LastTotal != 5 {
		t.Errorf("state = %+v", state)
	}
}
