package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/scheduler"
)

const autoSyncTimeout = 5 * time.Second

// mutatingCommands lists commands that modify local data and should trigger auto-sync.
var mutatingCommands = map[string]bool{
	"add":    true,
	"update": true,
	"done":   true,
	"delete": true,
}

// isMutatingCommand checks if the given command name triggers auto-sync.
func isMutatingCommand(name string) bool {
	return mutatingCommands[name]
}

// autoSyncAfterMutation runs a quick pass after a mutating command completes.
// Runs synchronously but with a short timeout. Errors are logged, not returned.
func autoSyncAfterMutation(ctx context.Context) {
	if appCfg == nil || !appCfg.Sync.Auto {
		return
	}

	database, err := db.Open(getBaseDir())
	if err != nil {
		slog.Debug("autosync: open db", "err", err)
		return
	}
	a := newApp(appCfg, database, slog.Default(), autoSyncTimeout)
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, autoSyncTimeout)
	defer cancel()

	res, err := a.runner.RunNow(ctx)
	switch {
	case errors.Is(err, scheduler.ErrRemoteUnreachable):
		slog.Debug("autosync: remote unreachable, changes stay queued")
	case err != nil:
		slog.Debug("autosync", "err", err)
	default:
		slog.Debug("autosync", "ok", res.SuccessCount, "failed", res.ErrorCount)
	}
}
