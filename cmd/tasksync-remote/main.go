// Command tasksync-remote runs the in-memory demo remote that tasksync
// replays its queue against. State is lost on exit.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus/tasksync/internal/config"
	"github.com/marcus/tasksync/internal/logging"
	"github.com/marcus/tasksync/internal/remote"
	"github.com/spf13/pflag"
)

func main() {
	configFile := pflag.String("config", "", "config file (default "+config.DefaultPath()+")")
	pflag.String("addr", "", "listen address (overrides demo.listen_addr)")
	pflag.String("api-key", "", "require this bearer key (overrides demo.api_key)")
	pflag.Parse()

	cfg, err := config.Load(config.Options{
		File: *configFile,
		Flags: map[string]*pflag.Flag{
			"demo.listen_addr": pflag.Lookup("addr"),
			"demo.api_key":     pflag.Lookup("api-key"),
		},
	})
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger, closeLog := logging.Setup(cfg.Log)
	defer closeLog()

	demo := remote.New(remote.Options{
		MaxBatch: cfg.Demo.MaxBatch,
		APIKey:   cfg.Demo.APIKey,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr:         cfg.Demo.ListenAddr,
		Handler:      demo.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			stop()
		}
	}()
	logger.Info("demo remote started", "addr", cfg.Demo.ListenAddr, "max_batch", cfg.Demo.MaxBatch)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
