// Package tasks is the record service: task mutations that also queue the
// matching sync operation.
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
)

// ErrInvalid marks input the service refuses to store.
var ErrInvalid = errors.New("invalid task")

const maxTitleLen = 500

// Store is the record store the service writes through. The queued writes
// commit the task and its queue item together or not at all.
type Store interface {
	GetTask(id string) (*models.Task, error)
	ListTasks(opts db.ListTasksOptions) ([]*models.Task, error)
	CreateTaskQueued(task *models.Task, build db.QueueItemFunc) error
	UpdateTaskQueued(task *models.Task, build db.QueueItemFunc) error
}

// Enqueuer builds the queue item for an operation.
type Enqueuer interface {
	NewSyncItem(taskID string, op models.Operation, data json.RawMessage) *models.SyncQueueItem
}

// Service creates, edits and soft-deletes tasks. Every mutation leaves the
// task pending and appends a queue item carrying its snapshot in the same
// transaction.
type Service struct {
	store Store
	queue Enqueuer
}

// NewService creates a record service.
func NewService(store Store, queue Enqueuer) *Service {
	return &Service{store: store, queue: queue}
}

// Patch holds optional field changes; nil fields are left alone.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Create stores a new task and queues its create operation.
func (s *Service) Create(title, description string) (*models.Task, error) {
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}
	task := &models.Task{Title: title, Description: description}
	if err := s.store.CreateTaskQueued(task, s.queued(models.OperationCreate)); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// Get returns a live task.
func (s *Service) Get(id string) (*models.Task, error) {
	return s.store.GetTask(db.NormalizeTaskID(id))
}

// List returns tasks matching opts.
func (s *Service) List(opts db.ListTasksOptions) ([]*models.Task, error) {
	return s.store.ListTasks(opts)
}

// Update applies patch and queues an update operation.
func (s *Service) Update(id string, patch Patch) (*models.Task, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalid)
	}
	task, err := s.store.GetTask(db.NormalizeTaskID(id))
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}

	if err := s.store.UpdateTaskQueued(task, s.queued(models.OperationUpdate)); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete soft-deletes a task and queues a delete operation.
func (s *Service) Delete(id string) (*models.Task, error) {
	task, err := s.store.GetTask(db.NormalizeTaskID(id))
	if err != nil {
		return nil, err
	}
	task.Deleted = true
	if err := s.store.UpdateTaskQueued(task, s.queued(models.OperationDelete)); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return task, nil
}

// queued snapshots the task as written and wraps it in an op item.
func (s *Service) queued(op models.Operation) db.QueueItemFunc {
	return func(task *models.Task) (*models.SyncQueueItem, error) {
		snap, err := task.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("snapshot task: %w", err)
		}
		return s.queue.NewSyncItem(task.ID, op, snap), nil
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if len(title) > maxTitleLen {
		return "", fmt.Errorf("%w: title longer than %d characters", ErrInvalid, maxTitleLen)
	}
	return title, nil
}
