package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/scheduler"
	tdsync "github.com/marcus/tasksync/internal/sync"
	"github.com/marcus/tasksync/internal/tasks"
)

// Runner is the single-flight sync gate.
type Runner interface {
	Run(ctx context.Context, opts scheduler.RunOptions) (*tdsync.Result, error)
	Status() scheduler.Status
}

// Prober checks whether the remote is reachable.
type Prober interface {
	CheckConnectivity(ctx context.Context) bool
}

// Store is the read side the status and health endpoints need.
type Store interface {
	Ping() error
	CountPendingSyncItems() (int, error)
	CountTasksBySyncStatus() (map[models.SyncStatus]int, error)
	GetSyncState() (*db.SyncState, error)
}

// Deps bundles what the trigger surface serves.
type Deps struct {
	Runner Runner
	Prober Prober
	Store  Store
	Tasks  *tasks.Service
	// Demo, when set, is mounted under /demo.
	Demo   http.Handler
	Logger *slog.Logger
}

// Server is the local HTTP trigger surface.
type Server struct {
	config  Config
	deps    Deps
	http    *http.Server
	metrics *Metrics
	addr    net.Addr
}

// NewServer creates a Server with the given config and dependencies.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		config:  cfg,
		deps:    deps,
		metrics: NewMetrics(),
	}
	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Metrics returns the live counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.addr = ln.Addr()

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.deps.Logger.Error("http server", "err", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metricz", s.handleMetrics)

	// Sync
	mux.HandleFunc("POST /v1/sync", s.handleSync)
	mux.HandleFunc("GET /v1/sync/status", s.handleSyncStatus)

	// Tasks
	mux.HandleFunc("GET /v1/tasks", s.handleListTasks)
	mux.HandleFunc("POST /v1/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PATCH /v1/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.handleDeleteTask)

	if s.deps.Demo != nil {
		mux.Handle("/demo/", http.StripPrefix("/demo", s.deps.Demo))
	}

	return chain(mux,
		withRequest(s.deps.Logger),
		observe(s.metrics),
		recoverPanics,
		allowOrigins(s.config.CORSAllowedOrigins),
		limitBody(s.config.MaxBodyBytes),
	)
}

// handleHealth is a liveness echo; it also pings the local store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
