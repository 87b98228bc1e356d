// Package remote is a small in-memory remote authority that speaks the
// batch sync protocol. It backs tasksync-remote and local testing.
package remote

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxBatch = 1000

// --- Wire types (mirrors internal/syncclient, independently defined) ---

// Item is one operation in a batch.
type Item struct {
	TaskID    string          `json:"taskId"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
}

type batchRequest struct {
	Items []Item `json:"items"`
}

type itemResult struct {
	TaskID     string      `json:"taskId"`
	Success    bool        `json:"success"`
	ServerData *serverData `json:"serverData,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type batchResponse struct {
	Results []itemResult `json:"results"`
}

type serverData struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

// Record is the server's copy of a task.
type Record struct {
	ServerID  string          `json:"serverId"`
	TaskID    string          `json:"taskId"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Deleted   bool            `json:"deleted"`
	Version   int             `json:"version"`
}

// Rejector lets tests refuse individual items. A non-empty message rejects.
type Rejector func(item Item) string

// Options configures a Server.
type Options struct {
	MaxBatch int
	APIKey   string
	Rejector Rejector
	Logger   *slog.Logger
}

// Server holds records in memory, keyed by client task id.
type Server struct {
	maxBatch int
	apiKey   string
	rejector Rejector
	logger   *slog.Logger

	mu      sync.Mutex
	records map[string]*Record
	batches int
}

// New creates a demo remote.
func New(opts Options) *Server {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		maxBatch: opts.MaxBatch,
		apiKey:   opts.APIKey,
		rejector: opts.Rejector,
		logger:   opts.Logger,
		records:  make(map[string]*Record),
	}
}

// Handler returns the remote's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/sync/batch", s.requireKey(s.handleBatch))
	mux.HandleFunc("GET /v1/records", s.requireKey(s.handleListRecords))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.Items) > s.maxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large", "batch exceeds maximum of "+strconv.Itoa(s.maxBatch)+" items")
		return
	}

	resp := batchResponse{Results: make([]itemResult, 0, len(req.Items))}
	s.mu.Lock()
	s.batches++
	for _, item := range req.Items {
		resp.Results = append(resp.Results, s.apply(item))
	}
	s.mu.Unlock()

	s.logger.Debug("batch applied", "items", len(req.Items))
	writeJSON(w, http.StatusOK, resp)
}

// apply validates and stores one item; s.mu must be held.
func (s *Server) apply(item Item) itemResult {
	res := itemResult{TaskID: item.TaskID}
	if strings.TrimSpace(item.TaskID) == "" {
		res.Error = "empty taskId"
		return res
	}
	switch item.Operation {
	case "create", "update", "delete":
	default:
		res.Error = "unknown operation " + item.Operation
		return res
	}
	var snapshot struct {
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if len(item.Data) > 0 {
		if err := json.Unmarshal(item.Data, &snapshot); err != nil {
			res.Error = "data must be a JSON object"
			return res
		}
	}
	if s.rejector != nil {
		if msg := s.rejector(item); msg != "" {
			res.Error = msg
			return res
		}
	}

	rec, ok := s.records[item.TaskID]
	if !ok {
		rec = &Record{ServerID: uuid.New().String(), TaskID: item.TaskID}
		s.records[item.TaskID] = rec
	}

	updatedAt := snapshot.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	// Last write wins: a stale replay is acknowledged but not applied
	if !updatedAt.Before(rec.UpdatedAt) {
		rec.Data = append(json.RawMessage(nil), item.Data...)
		rec.UpdatedAt = updatedAt
		rec.Deleted = item.Operation == "delete"
		rec.Version++
	}

	res.Success = true
	res.ServerData = &serverData{ID: rec.ServerID, UpdatedAt: rec.UpdatedAt, Version: rec.Version}
	return res
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"records": s.Records()})
}

// Records returns a copy of every stored record ordered by task id.
func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// Batches returns how many batch requests were applied.
func (s *Server) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

func (s *Server) requireKey(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			handler(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing api key")
			return
		}
		handler(w, r)
	}
}
