package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tdsync "github.com/marcus/tasksync/internal/sync"
)

type fakeEngine struct {
	online  atomic.Bool
	syncs   atomic.Int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func newFakeEngine() *fakeEngine {
	f := &fakeEngine{}
	f.online.Store(true)
	return f
}

func (f *fakeEngine) Sync(ctx context.Context) (*tdsync.Result, error) {
	f.syncs.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &tdsync.Result{SuccessCount: 2, ErrorCount: 1, Total: 3, Batches: 1}, nil
}

func (f *fakeEngine) CheckConnectivity(ctx context.Context) bool {
	return f.online.Load()
}

type recorder struct {
	mu    sync.Mutex
	calls []int
}

func (r *recorder) RecordSyncRun(at time.Time, success, errCount, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, success, errCount, total)
	return nil
}

func TestRunNow_RecordsOutcome(t *testing.T) {
	engine := newFakeEngine()
	rec := &recorder{}
	r := New(engine, rec, 0, nil)

	res, err := r.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("result = %+v", res)
	}
	if len(rec.calls) != 3 || rec.calls[0] != 2 || rec.calls[1] != 1 || rec.calls[2] != 3 {
		t.Errorf("recorded = %v", rec.calls)
	}

	st := r.Status()
	if st.InProgress || st.LastResult != res || st.LastRunAt.IsZero() || st.Runs != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestRunNow_SingleFlight(t *testing.T) {
	engine := newFakeEngine()
	engine.block = make(chan struct{})
	engine.started = make(chan struct{}, 1)
	r := New(engine, nil, 0, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.RunNow(context.Background())
		done <- err
	}()
	<-engine.started

	if !r.InProgress() {
		t.Error("InProgress = false during a pass")
	}
	if _, err := r.RunNow(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent RunNow err = %v, want ErrSyncInProgress", err)
	}

	close(engine.block)
	if err := <-done; err != nil {
		t.Fatalf("first RunNow failed: %v", err)
	}
	if got := engine.syncs.Load(); got != 1 {
		t.Errorf("engine ran %d times, want 1", got)
	}

	engine.started = nil
	if _, err := r.RunNow(context.Background()); err != nil {
		t.Errorf("RunNow after completion failed: %v", err)
	}
}

func TestRunNow_UnreachableSkipsSync(t *testing.T) {
	engine := newFakeEngine()
	engine.online.Store(false)
	rec := &recorder{}
	r := New(engine, rec, 0, nil)

	if _, err := r.RunNow(context.Background()); !errors.Is(err, ErrRemoteUnreachable) {
		t.Errorf("err = %v, want ErrRemoteUnreachable", err)
	}
	if engine.syncs.Load() != 0 || len(rec.calls) != 0 {
		t.Error("unreachable remote must not start a pass")
	}
	if r.InProgress() {
		t.Error("flag left set after unreachable probe")
	}

	if _, err := r.Run(context.Background(), RunOptions{SkipCheck: true}); err != nil {
		t.Errorf("Run with SkipCheck failed: %v", err)
	}
}

func TestRunNow_EngineErrorNotRecorded(t *testing.T) {
	engine := newFakeEngine()
	engine.err = &tdsync.StorageError{Op: "read queue", Err: errors.New("disk full")}
	rec := &recorder{}
	r := New(engine, rec, 0, nil)

	_, err := r.RunNow(context.Background())
	var se *tdsync.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StorageError", err)
	}
	if len(rec.calls) != 0 {
		t.Error("failed pass should not be recorded as a completed run")
	}
	if st := r.Status(); st.LastError == "" {
		t.Error("status should carry the last error")
	}
}

func TestStartStop(t *testing.T) {
	engine := newFakeEngine()
	r := New(engine, nil, 10*time.Millisecond, nil)

	r.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for engine.syncs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	runs := engine.syncs.Load()
	if runs < 2 {
		t.Fatalf("periodic sync ran %d times, want at least 2", runs)
	}
	time.Sleep(30 * time.Millisecond)
	if engine.syncs.Load() != runs {
		t.Error("sync kept running after Stop")
	}
}

func TestStart_DisabledInterval(t *testing.T) {
	engine := newFakeEngine()
	r := New(engine, nil, 0, nil)
	r.Start(context.Background())
	r.Stop()
	if engine.syncs.Load() != 0 {
		t.Error("zero interval should not schedule passes")
	}
}

type passLog struct {
	mu   sync.Mutex
	errs []error
}

func (p *passLog) PassFinished(ctx context.Context, at time.Time, res *tdsync.Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func TestObserverSeesPasses(t *testing.T) {
	engine := newFakeEngine()
	obs := &passLog{}
	r := New(engine, nil, 0, nil)
	r.SetObserver(obs)

	if _, err := r.RunNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	engine.online.Store(false)
	r.RunNow(context.Background())
	engine.online.Store(true)
	engine.err = errors.New("boom")
	r.RunNow(context.Background())

	if len(obs.errs) != 2 {
		t.Fatalf("observer called %d times, want 2 (unreachable probe is not a pass)", len(obs.errs))
	}
	if obs.errs[0] != nil || obs.errs[1] == nil {
		t.Errorf("observed errs = %v", obs.errs)
	}
}

// busyObserver checks the flag from inside PassFinished and tries to start
// another pass, the way a webhook-triggered client would.
type busyObserver struct {
	r          *Runner
	inProgress bool
	nextErr    error
	calls      int
}

func (b *busyObserver) PassFinished(ctx context.Context, at time.Time, res *tdsync.Result, err error) {
	b.calls++
	if b.calls > 1 {
		return
	}
	b.inProgress = b.r.InProgress()
	_, b.nextErr = b.r.Run(ctx, RunOptions{SkipCheck: true})
}

func TestObserverRunsAfterFlagReleased(t *testing.T) {
	engine := newFakeEngine()
	r := New(engine, nil, 0, nil)
	obs := &busyObserver{r: r}
	r.SetObserver(obs)

	if _, err := r.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if obs.inProgress {
		t.Error("InProgress = true while the observer runs")
	}
	if obs.nextErr != nil {
		t.Errorf("pass started from the observer failed: %v", obs.nextErr)
	}
	if got := engine.syncs.Load(); got != 2 {
		t.Errorf("engine ran %d times, want 2", got)
	}
	if r.InProgress() {
		t.Error("flag left set")
	}
}
