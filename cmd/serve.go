package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcus/tasksync/internal/api"
	"github.com/marcus/tasksync/internal/output"
	"github.com/marcus/tasksync/internal/remote"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run periodic sync and the local HTTP trigger API",
	Long: `Runs a sync pass every sync.interval and serves a local HTTP API on
server.listen_addr:

  POST /v1/sync          run a pass now (409 while one is running)
  GET  /v1/sync/status   queue depth and last outcome
  /v1/tasks              task CRUD
  GET  /healthz          liveness
  GET  /metricz          counters

With server.demo_remote the in-memory demo remote is mounted under /demo.`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		deps := api.Deps{
			Runner: a.runner,
			Prober: a.engine,
			Store:  a.db,
			Tasks:  a.tasks,
			Logger: a.logger,
		}
		if a.cfg.Server.DemoRemote {
			deps.Demo = remote.New(remote.Options{
				MaxBatch: a.cfg.Demo.MaxBatch,
				APIKey:   a.cfg.Demo.APIKey,
				Logger:   a.logger.With("component", "demo-remote"),
			}).Handler()
		}

		srvCfg := api.ConfigFrom(a.cfg)
		srv := api.NewServer(srvCfg, deps)
		if err := srv.Start(); err != nil {
			output.Error("%v", err)
			return err
		}
		slog.Info("server started", "addr", srv.Addr().String(), "remote", a.cfg.Remote.URL, "interval", a.cfg.Sync.Interval)
		fmt.Printf("Listening on %s\n", srv.Addr())

		ctx := cmd.Context()
		a.runner.Start(ctx)

		<-ctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "err", err)
		}
		a.runner.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
