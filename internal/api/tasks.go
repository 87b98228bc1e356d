package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/tasks"
)

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleListTasks lists live tasks. ?all=true includes soft-deleted ones
// and ?sync_status= filters by status.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts db.ListTasksOptions
	opts.IncludeDeleted, _ = strconv.ParseBool(q.Get("all"))
	for _, st := range q["sync_status"] {
		status := models.SyncStatus(st)
		if !models.IsValidSyncStatus(status) {
			writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "unknown sync_status "+st)
			return
		}
		opts.SyncStatus = append(opts.SyncStatus, status)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}

	list, err := s.deps.Tasks.List(opts)
	if err != nil {
		s.taskError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	task, err := s.deps.Tasks.Create(req.Title, req.Description)
	if err != nil {
		s.taskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.deps.Tasks.Get(r.PathValue("id"))
	if err != nil {
		s.taskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch tasks.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	task, err := s.deps.Tasks.Update(r.PathValue("id"), patch)
	if err != nil {
		s.taskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.deps.Tasks.Delete(r.PathValue("id"))
	if err != nil {
		s.taskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// taskError maps record service errors onto HTTP responses.
func (s *Server) taskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tasks.ErrInvalid):
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidTask, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		logFor(r.Context()).Error("task request", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
