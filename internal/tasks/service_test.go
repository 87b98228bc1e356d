package tasks

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/sync"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	database, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	engine := sync.NewEngine(database, nil, sync.Config{}, nil)
	return NewService(database, engine), database
}

func snapshotOf(t *testing.T, item *models.SyncQueueItem) models.Task {
	t.Helper()
	var task models.Task
	if err := json.Unmarshal(item.Data, &task); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return task
}

func TestLifecycleQueuesEveryMutation(t *testing.T) {
	svc, database := newTestService(t)

	task, err := svc.Create("  Plan trip ", "flights")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Title != "Plan trip" {
		t.Errorf("Title = %q, want trimmed", task.Title)
	}

	done := true
	if _, err := svc.Update(task.ID, Patch{Completed: &done}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := svc.Delete(task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	items, err := database.SyncItemsForTask(task.ID)
	if err != nil {
		t.Fatalf("SyncItemsForTask failed: %v", err)
	}
	wantOps := []models.Operation{models.OperationCreate, models.OperationUpdate, models.OperationDelete}
	if len(items) != len(wantOps) {
		t.Fatalf("queued %d items, want %d", len(items), len(wantOps))
	}
	for i, item := range items {
		if item.Operation != wantOps[i] {
			t.Errorf("items[%d].Operation = %s, want %s", i, item.Operation, wantOps[i])
		}
		if item.RetryCount != 0 {
			t.Errorf("items[%d].RetryCount = %d", i, item.RetryCount)
		}
	}
	if snap := snapshotOf(t, items[1]); !snap.Completed || snap.Deleted {
		t.Errorf("update snapshot = %+v", snap)
	}
	if snap := snapshotOf(t, items[2]); !snap.Deleted {
		t.Errorf("delete snapshot = %+v", snap)
	}

	if _, err := svc.Get(task.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestUpdate_ResetsSyncedTaskToPending(t *testing.T) {
	svc, database := newTestService(t)
	task, err := svc.Create("read", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	engine := sync.NewEngine(database, nil, sync.Config{}, nil)
	if err := engine.UpdateSyncStatus(task.ID, models.SyncStatusSynced, nil); err != nil {
		t.Fatalf("UpdateSyncStatus failed: %v", err)
	}

	title := "read more"
	updated, err := svc.Update(task.ID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.SyncStatus != models.SyncStatusPending {
		t.Errorf("SyncStatus = %q, want pending", updated.SyncStatus)
	}
	if updated.UpdatedAt.Before(task.UpdatedAt) {
		t.Errorf("UpdatedAt moved backwards")
	}
}

func TestValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create("   ", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("blank title err = %v, want ErrInvalid", err)
	}

	task, err := svc.Create("ok", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Update(task.ID, Patch{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty patch err = %v, want ErrInvalid", err)
	}
	empty := ""
	if _, err := svc.Update(task.ID, Patch{Title: &empty}); !errors.Is(err, ErrInvalid) {
		t.Errorf("blank title patch err = %v, want ErrInvalid", err)
	}
	if _, err := svc.Update("tk-missing", Patch{Title: &empty}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("missing task err = %v, want ErrNotFound", err)
	}
}

func TestGet_AcceptsBareID(t *testing.T) {
	svc, _ := newTestService(t)
	task, err := svc.Create("bare", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := svc.Get(task.ID[len("tk-"):])
	if err != nil {
		t.Fatalf("Get with bare id failed: %v", err)
	}
	if got.ID != task.ID {
		t.Errorf("ID = %q, want %q", got.ID, task.ID)
	}
}

// fixedIDQueue hands out the same queue item id every time, so every insert
// after the first hits the primary key and fails.
type fixedIDQueue struct{}

func (fixedIDQueue) NewSyncItem(taskID string, op models.Operation, data json.RawMessage) *models.SyncQueueItem {
	return &models.SyncQueueItem{ID: "qi-fixed", TaskID: taskID, Operation: op, Data: data}
}

func TestFailedEnqueueLeavesNoPartialWrite(t *testing.T) {
	database, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	svc := NewService(database, fixedIDQueue{})

	first, err := svc.Create("first", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Create("second", ""); err == nil {
		t.Fatal("Create succeeded although its queue item could not be stored")
	}
	all, err := database.ListTasks(db.ListTasksOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != first.ID {
		t.Errorf("tasks = %d, want only the first (no orphan pending task)", len(all))
	}

	title := "renamed"
	if _, err := svc.Update(first.ID, Patch{Title: &title}); err == nil {
		t.Fatal("Update succeeded although its queue item could not be stored")
	}
	if _, err := svc.Delete(first.ID); err == nil {
		t.Fatal("Delete succeeded although its queue item could not be stored")
	}

	got, err := database.GetTask(first.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "first" || got.Deleted {
		t.Errorf("task = %+v, want the change rolled back", got)
	}
	if !got.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, first.UpdatedAt)
	}
	items, _ := database.SyncItemsForTask(first.ID)
	if len(items) != 1 || items[0].Operation != models.OperationCreate {
		t.Errorf("queue = %+v, want only the original create", items)
	}
}
