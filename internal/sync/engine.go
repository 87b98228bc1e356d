package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/syncclient"
)

// Store is the durable state the engine drains and updates.
type Store interface {
	PendingSyncItems() ([]*models.SyncQueueItem, error)
	InsertSyncItem(item *models.SyncQueueItem) error
	UpdateSyncItemRetry(id string, retryCount int, lastError string, attemptedAt time.Time) error
	ApplySyncOutcome(taskID string, apply func(task *models.Task) models.QueueRemoval) error
}

// Remote is the authority the queue is replayed against.
type Remote interface {
	BatchSync(ctx context.Context, req *syncclient.BatchRequest) (*syncclient.BatchResponse, error)
	Health(ctx context.Context) error
}

// Engine drains the sync queue in batches. It is not safe to run two Sync
// calls against the same store at once; callers gate it (see scheduler).
type Engine struct {
	store  Store
	remote Remote
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an engine. A nil logger uses slog.Default().
func NewEngine(store Store, remote Remote, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		remote: remote,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the effective settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// NewSyncItem builds an unsaved queue item stamped with the engine clock.
func (e *Engine) NewSyncItem(taskID string, op models.Operation, data json.RawMessage) *models.SyncQueueItem {
	return &models.SyncQueueItem{
		TaskID:    taskID,
		Operation: op,
		Data:      data,
		CreatedAt: e.now(),
	}
}

// AddToSyncQueue records an operation for later delivery. Only a store
// failure is returned.
func (e *Engine) AddToSyncQueue(taskID string, op models.Operation, data json.RawMessage) (*models.SyncQueueItem, error) {
	item := e.NewSyncItem(taskID, op, data)
	if err := e.store.InsertSyncItem(item); err != nil {
		return nil, storageErr("enqueue", err)
	}
	e.logger.Debug("queued operation", "task", taskID, "op", op, "item", item.ID)
	return item, nil
}

// pass is the state of one Sync call. settled holds tasks whose whole queue
// was cleared by a confirmation earlier in the pass; their remaining items
// are no longer stored and are not sent or retried.
type pass struct {
	res     *Result
	settled map[string]bool
}

// skip reports whether item belongs to a settled task, counting it if so.
func (e *Engine) skip(p *pass, item *models.SyncQueueItem) bool {
	if !p.settled[item.TaskID] {
		return false
	}
	p.res.Settled++
	e.logger.Debug("queued operation already settled", "task", item.TaskID, "item", item.ID)
	return true
}

// Sync sends every ready queue item to the remote, BatchSize at a time,
// one batch after another. Item failures are counted in the result; only
// storage failures and ctx cancellation end the pass early.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	items, err := e.store.PendingSyncItems()
	if err != nil {
		return nil, storageErr("read queue", err)
	}

	res := &Result{}
	if len(items) == 0 {
		return res, nil
	}

	ready := items
	if e.cfg.BackoffBase > 0 {
		now := e.now()
		ready = ready[:0:0]
		for _, item := range items {
			if now.Before(readyAt(item, e.cfg.BackoffBase, e.cfg.BackoffMax)) {
				res.Deferred++
				continue
			}
			ready = append(ready, item)
		}
	}
	res.Total = len(ready)

	p := &pass{res: res, settled: make(map[string]bool)}
	for start := 0; start < len(ready); start += e.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+e.cfg.BatchSize, len(ready))
		batch := make([]*models.SyncQueueItem, 0, end-start)
		for _, item := range ready[start:end] {
			if !e.skip(p, item) {
				batch = append(batch, item)
			}
		}
		if len(batch) == 0 {
			continue
		}
		res.Batches++
		if err := e.processBatch(ctx, batch, p); err != nil {
			return res, err
		}
	}

	e.logger.Info("sync pass complete",
		"total", res.Total, "ok", res.SuccessCount, "failed", res.ErrorCount,
		"settled", res.Settled, "abandoned", res.Abandoned, "deferred", res.Deferred,
		"batches", res.Batches)
	return res, nil
}

func (e *Engine) processBatch(ctx context.Context, batch []*models.SyncQueueItem, p *pass) error {
	req := &syncclient.BatchRequest{Items: make([]syncclient.BatchItem, len(batch))}
	for i, item := range batch {
		data := item.Data
		if len(data) == 0 {
			data = json.RawMessage("{}")
		}
		req.Items[i] = syncclient.BatchItem{
			TaskID:    item.TaskID,
			Operation: string(item.Operation),
			Data:      data,
		}
	}

	resp, err := e.remote.BatchSync(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("sync batch failed", "items", len(batch), "err", err)
		cause := fmt.Errorf("%w: %v", ErrTransport, err)
		for _, item := range batch {
			if err := e.handleSyncError(item, err.Error(), cause, p); err != nil {
				return err
			}
		}
		return nil
	}

	// Results may arrive in any order; pair them with items by task id,
	// first come first served among repeats of the same task.
	byTask := make(map[string][]syncclient.BatchResult, len(resp.Results))
	for _, r := range resp.Results {
		byTask[r.TaskID] = append(byTask[r.TaskID], r)
	}

	for _, item := range batch {
		results := byTask[item.TaskID]
		if len(results) == 0 {
			cause := fmt.Errorf("%w: %s", ErrItemRejected, noResult)
			if err := e.handleSyncError(item, noResult, cause, p); err != nil {
				return err
			}
			continue
		}
		r := results[0]
		byTask[item.TaskID] = results[1:]

		if r.Success {
			if err := e.confirm(item, r.ServerData, p); err != nil {
				return err
			}
			p.res.SuccessCount++
			continue
		}

		msg := r.Error
		if msg == "" {
			msg = genericFailure
		}
		if err := e.handleSyncError(item, msg, fmt.Errorf("%w: %s", ErrItemRejected, msg), p); err != nil {
			return err
		}
	}

	for taskID, extra := range byTask {
		if len(extra) > 0 {
			e.logger.Warn("ignoring unmatched batch results", "task", taskID, "count", len(extra))
		}
	}
	return nil
}

// handleSyncError bumps the item's retry count, abandoning it once the
// count passes MaxRetries. Items of a task settled earlier in the pass are
// gone from the store and only counted.
func (e *Engine) handleSyncError(item *models.SyncQueueItem, msg string, cause error, p *pass) error {
	if e.skip(p, item) {
		return nil
	}
	res := p.res
	res.ErrorCount++
	retries := item.RetryCount + 1
	failure := Failure{
		QueueItemID: item.ID,
		TaskID:      item.TaskID,
		Message:     msg,
		RetryCount:  retries,
		Err:         cause,
	}

	if retries > e.cfg.MaxRetries {
		err := e.store.ApplySyncOutcome(item.TaskID, func(task *models.Task) models.QueueRemoval {
			if task != nil {
				task.SyncStatus = models.SyncStatusError
			}
			return models.QueueRemoval{ItemIDs: []string{item.ID}}
		})
		if err != nil {
			return storageErr("abandon item", err)
		}
		failure.Abandoned = true
		failure.Err = fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, retries, cause)
		res.Abandoned++
		res.Failures = append(res.Failures, failure)
		e.logger.Warn("abandoning queued operation",
			"task", item.TaskID, "op", item.Operation, "item", item.ID, "attempts", retries, "err", msg)
		return nil
	}

	if err := e.store.UpdateSyncItemRetry(item.ID, retries, msg, e.now()); err != nil {
		return storageErr("record retry", err)
	}
	res.Failures = append(res.Failures, failure)
	e.logger.Debug("queued operation failed", "task", item.TaskID, "item", item.ID, "retry", retries, "err", cause)
	return nil
}

// confirm applies a successful result. The server's view is the snapshot
// that was sent overlaid with serverData; if the local task changed after
// the snapshot was taken, it stays pending and only this item is cleared.
func (e *Engine) confirm(item *models.SyncQueueItem, serverData json.RawMessage, p *pass) error {
	serverID := serverIDFrom(serverData)
	server := serverView(item.Data, serverData)
	now := e.now()

	var cleared bool
	err := e.store.ApplySyncOutcome(item.TaskID, func(task *models.Task) models.QueueRemoval {
		if task == nil {
			cleared = true
			return models.QueueRemoval{AllForTask: true}
		}
		if serverID != "" {
			task.ServerID = serverID
		}
		if server != nil && ResolveConflict(task, server) == task {
			e.logger.Debug("local edit newer than confirmed snapshot",
				"task", task.ID, "local", task.UpdatedAt, "server", server.UpdatedAt)
			return models.QueueRemoval{ItemIDs: []string{item.ID}}
		}
		task.SyncStatus = models.SyncStatusSynced
		task.LastSyncedAt = &now
		cleared = true
		return models.QueueRemoval{AllForTask: true}
	})
	if err != nil {
		return storageErr("mark synced", err)
	}
	if cleared {
		p.settled[item.TaskID] = true
	}
	return nil
}

// UpdateSyncStatus sets a task's sync status. Synced also takes the server
// id from serverData, stamps LastSyncedAt and clears the task's queue in the
// same transaction. A missing task only has its queue cleared.
func (e *Engine) UpdateSyncStatus(taskID string, status models.SyncStatus, serverData json.RawMessage) error {
	if status != models.SyncStatusSynced && status != models.SyncStatusError {
		return fmt.Errorf("invalid sync status %q", status)
	}
	serverID := serverIDFrom(serverData)
	now := e.now()

	err := e.store.ApplySyncOutcome(taskID, func(task *models.Task) models.QueueRemoval {
		if status == models.SyncStatusError {
			if task != nil {
				task.SyncStatus = models.SyncStatusError
			}
			return models.QueueRemoval{}
		}
		if task != nil {
			if serverID != "" {
				task.ServerID = serverID
			}
			task.SyncStatus = models.SyncStatusSynced
			task.LastSyncedAt = &now
		}
		return models.QueueRemoval{AllForTask: true}
	})
	if err != nil {
		return storageErr("update sync status", err)
	}
	return nil
}

// CheckConnectivity reports whether the remote answers its health check
// with a 2xx within HealthTimeout.
func (e *Engine) CheckConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.HealthTimeout)
	defer cancel()

	if err := e.remote.Health(ctx); err != nil {
		e.logger.Debug("remote unreachable", "err", err)
		return false
	}
	return true
}

func serverIDFrom(serverData json.RawMessage) string {
	if len(serverData) == 0 {
		return ""
	}
	var v struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(serverData, &v) != nil {
		return ""
	}
	return v.ID
}

// serverView rebuilds the record the server now holds. It returns nil when
// neither side carries a usable timestamp.
func serverView(snapshot, serverData json.RawMessage) *models.Task {
	var t models.Task
	if len(snapshot) > 0 {
		json.Unmarshal(snapshot, &t)
	}
	if len(serverData) > 0 {
		var overlay struct {
			UpdatedAt *time.Time `json:"updatedAt"`
		}
		if json.Unmarshal(serverData, &overlay) == nil && overlay.UpdatedAt != nil {
			t.UpdatedAt = *overlay.UpdatedAt
		}
	}
	if t.UpdatedAt.IsZero() {
		return nil
	}
	return &t
}
