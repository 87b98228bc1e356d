package cmd

import (
	"log/slog"
	"time"

	"github.com/marcus/tasksync/internal/config"
	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/scheduler"
	tdsync "github.com/marcus/tasksync/internal/sync"
	"github.com/marcus/tasksync/internal/syncclient"
	"github.com/marcus/tasksync/internal/tasks"
	"github.com/marcus/tasksync/internal/webhook"
)

// app is the wired set of components one command works with.
type app struct {
	cfg    *config.Config
	db     *db.DB
	client *syncclient.Client
	engine *tdsync.Engine
	tasks  *tasks.Service
	runner *scheduler.Runner
	logger *slog.Logger
}

// openApp opens the store under the base directory and wires the engine
// against the configured remote.
func openApp() (*app, error) {
	database, err := db.Open(getBaseDir())
	if err != nil {
		return nil, err
	}
	return newApp(appCfg, database, slog.Default(), appCfg.Remote.RequestTimeout), nil
}

func newApp(cfg *config.Config, database *db.DB, logger *slog.Logger, requestTimeout time.Duration) *app {
	client := syncclient.New(cfg.Remote.URL, cfg.Remote.APIKey, requestTimeout)
	engine := tdsync.NewEngine(database, client, engineConfig(cfg), logger)
	runner := scheduler.New(engine, database, cfg.Sync.Interval, logger)
	if cfg.Webhook.URL != "" {
		runner.SetObserver(webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret, database.BaseDir(), cfg.Webhook.Timeout, logger))
	}
	return &app{
		cfg:    cfg,
		db:     database,
		client: client,
		engine: engine,
		tasks:  tasks.NewService(database, engine),
		runner: runner,
		logger: logger,
	}
}

func engineConfig(cfg *config.Config) tdsync.Config {
	return tdsync.Config{
		BatchSize:     cfg.Sync.BatchSize,
		MaxRetries:    cfg.Sync.MaxRetries,
		HealthTimeout: cfg.Remote.HealthTimeout,
		BackoffBase:   cfg.Sync.BackoffBase,
		BackoffMax:    cfg.Sync.BackoffMax,
	}
}

func (a *app) Close() error {
	return a.db.Close()
}
