package api

import (
	"sync/atomic"
	"time"

	tdsync "github.com/marcus/tasksync/internal/sync"
)

// Metrics collects in-memory counters for the trigger surface.
type Metrics struct {
	startTime    time.Time
	requests     atomic.Int64
	serverErrors atomic.Int64
	clientErrors atomic.Int64
	syncRuns     atomic.Int64
	syncRejected atomic.Int64
	itemsSynced  atomic.Int64
	itemsFailed  atomic.Int64
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Requests      int64   `json:"requests"`
	ServerErrors  int64   `json:"server_errors"`
	ClientErrors  int64   `json:"client_errors"`
	SyncRuns      int64   `json:"sync_runs"`
	SyncRejected  int64   `json:"sync_rejected"`
	ItemsSynced   int64   `json:"items_synced"`
	ItemsFailed   int64   `json:"items_failed"`
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordError increments the server error (5xx) counter.
func (m *Metrics) RecordError() {
	m.serverErrors.Add(1)
}

// RecordClientError increments the client error (4xx) counter.
func (m *Metrics) RecordClientError() {
	m.clientErrors.Add(1)
}

// RecordSyncRun adds a finished pass.
func (m *Metrics) RecordSyncRun(res *tdsync.Result) {
	m.syncRuns.Add(1)
	if res != nil {
		m.itemsSynced.Add(int64(res.SuccessCount))
		m.itemsFailed.Add(int64(res.ErrorCount))
	}
}

// RecordSyncRejected counts triggers refused as busy or offline.
func (m *Metrics) RecordSyncRejected() {
	m.syncRejected.Add(1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		Requests:      m.requests.Load(),
		ServerErrors:  m.serverErrors.Load(),
		ClientErrors:  m.clientErrors.Load(),
		SyncRuns:      m.syncRuns.Load(),
		SyncRejected:  m.syncRejected.Load(),
		ItemsSynced:   m.itemsSynced.Load(),
		ItemsFailed:   m.itemsFailed.Load(),
	}
}
