package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/scheduler"
	tdsync "github.com/marcus/tasksync/internal/sync"
)

// SyncStatusResponse is the body of GET /v1/sync/status.
type SyncStatusResponse struct {
	Pending    int                       `json:"pending"`
	Tasks      map[models.SyncStatus]int `json:"tasks"`
	LastSyncAt *time.Time                `json:"last_sync_at"`
	Online     bool                      `json:"online"`
	InProgress bool                      `json:"in_progress"`
	Runs       int64                     `json:"runs"`
	LastResult *tdsync.Result            `json:"last_result,omitempty"`
	LastError  string                    `json:"last_error,omitempty"`
}

// handleSync runs one pass and returns its result. A pass already in flight
// is refused rather than queued.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.ParseBool(r.URL.Query().Get("skip_check"))

	res, err := s.deps.Runner.Run(r.Context(), scheduler.RunOptions{SkipCheck: skip})
	switch {
	case errors.Is(err, scheduler.ErrSyncInProgress):
		s.metrics.RecordSyncRejected()
		writeError(w, r, http.StatusConflict, ErrCodeSyncInProgress, err.Error())
		return
	case errors.Is(err, scheduler.ErrRemoteUnreachable):
		s.metrics.RecordSyncRejected()
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeRemoteUnreachable, err.Error())
		return
	case err != nil:
		logFor(r.Context()).Error("sync", "err", err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "sync failed")
		return
	}

	s.metrics.RecordSyncRun(res)
	writeJSON(w, http.StatusOK, res)
}

// handleSyncStatus reports the queue depth and the outcome of the last pass.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.deps.Store.CountPendingSyncItems()
	if err != nil {
		logFor(r.Context()).Error("count pending", "err", err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to read queue")
		return
	}
	counts, err := s.deps.Store.CountTasksBySyncStatus()
	if err != nil {
		logFor(r.Context()).Error("count tasks", "err", err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to read tasks")
		return
	}
	state, err := s.deps.Store.GetSyncState()
	if err != nil {
		logFor(r.Context()).Error("sync state", "err", err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to read sync state")
		return
	}

	st := s.deps.Runner.Status()
	resp := SyncStatusResponse{
		Pending:    pending,
		Tasks:      counts,
		LastSyncAt: state.LastSyncAt,
		InProgress: st.InProgress,
		Runs:       st.Runs,
		LastResult: st.LastResult,
		LastError:  st.LastError,
	}
	if s.deps.Prober != nil {
		resp.Online = s.deps.Prober.CheckConnectivity(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}
