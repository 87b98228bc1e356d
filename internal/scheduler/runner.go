// Package scheduler gates sync passes so at most one runs at a time, on
// demand or on a timer.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tdsync "github.com/marcus/tasksync/internal/sync"
)

var (
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrRemoteUnreachable = errors.New("remote unreachable")
)

// Engine is the part of the sync engine the runner drives.
type Engine interface {
	Sync(ctx context.Context) (*tdsync.Result, error)
	CheckConnectivity(ctx context.Context) bool
}

// StateRecorder persists the outcome of a completed pass.
type StateRecorder interface {
	RecordSyncRun(at time.Time, success, errCount, total int) error
}

// Observer is told about every pass that reached the engine.
type Observer interface {
	PassFinished(ctx context.Context, at time.Time, res *tdsync.Result, err error)
}

// RunOptions adjusts a single pass.
type RunOptions struct {
	// SkipCheck sends batches without probing the remote first.
	SkipCheck bool
}

// Status is a point-in-time view of the runner.
type Status struct {
	InProgress bool
	LastRunAt  time.Time
	LastResult *tdsync.Result
	LastError  string
	Runs       int64
}

// Runner owns the single active-sync flag.
type Runner struct {
	engine   Engine
	state    StateRecorder
	interval time.Duration
	logger   *slog.Logger
	observer Observer

	running atomic.Bool
	runs    atomic.Int64

	mu         sync.Mutex
	lastRunAt  time.Time
	lastResult *tdsync.Result
	lastErr    error

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a runner. state may be nil; interval <= 0 disables Start.
func New(engine Engine, state StateRecorder, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:   engine,
		state:    state,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// SetObserver registers o to hear about finished passes. Call it before
// the first Run.
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

// RunNow probes the remote and runs one pass.
func (r *Runner) RunNow(ctx context.Context) (*tdsync.Result, error) {
	return r.Run(ctx, RunOptions{})
}

// Run runs one pass unless another is active, in which case it returns
// ErrSyncInProgress immediately. The observer is told after the flag is
// released, so a slow observer never blocks the next pass.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*tdsync.Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	p, err := r.pass(ctx, opts)
	if p != nil && r.observer != nil {
		r.observer.PassFinished(ctx, p.at, p.res, p.err)
	}
	if p == nil {
		return nil, err
	}
	return p.res, err
}

// passOutcome is what the engine returned for one pass.
type passOutcome struct {
	at  time.Time
	res *tdsync.Result
	err error
}

// pass holds the flag for the probe and the engine call. It returns a nil
// outcome when the pass never reached the engine.
func (r *Runner) pass(ctx context.Context, opts RunOptions) (*passOutcome, error) {
	defer r.running.Store(false)

	if !opts.SkipCheck && !r.engine.CheckConnectivity(ctx) {
		return nil, ErrRemoteUnreachable
	}

	start := time.Now()
	res, err := r.engine.Sync(ctx)
	r.runs.Add(1)
	out := &passOutcome{at: start.UTC(), res: res, err: err}

	r.mu.Lock()
	r.lastRunAt = out.at
	r.lastErr = err
	if res != nil {
		r.lastResult = res
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("sync pass failed", "err", err, "duration", time.Since(start))
		return out, err
	}

	if r.state != nil {
		if err := r.state.RecordSyncRun(out.at, res.SuccessCount, res.ErrorCount, res.Total); err != nil {
			return out, fmt.Errorf("record sync run: %w", err)
		}
	}
	return out, nil
}

// InProgress reports whether a pass is running right now.
func (r *Runner) InProgress() bool {
	return r.running.Load()
}

// Status returns the runner's last outcome.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Status{
		InProgress: r.running.Load(),
		LastRunAt:  r.lastRunAt,
		LastResult: r.lastResult,
		Runs:       r.runs.Load(),
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	return s
}

// Start runs a pass every interval until ctx ends or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("periodic sync disabled")
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("periodic sync started", "interval", r.interval)
		for {
			select {
			case <-ticker.C:
				r.tick(ctx)
			case <-r.stopCh:
				r.logger.Info("periodic sync stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Runner) tick(ctx context.Context) {
	res, err := r.RunNow(ctx)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		r.logger.Debug("skipping tick, sync in progress")
	case errors.Is(err, ErrRemoteUnreachable):
		r.logger.Info("skipping tick, remote unreachable")
	case err != nil:
		// already logged by Run
	case res.Total > 0:
		r.logger.Info("periodic sync", "ok", res.SuccessCount, "failed", res.ErrorCount)
	}
}

// Stop ends the periodic loop and waits for an in-flight tick to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
