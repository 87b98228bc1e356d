// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/marcus/tasksync/internal/config"
)

// ParseLevel maps a level name to slog; unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Writer returns where log lines go: a rotating file when cfg.File is set,
// otherwise fallback.
func Writer(cfg config.LogConfig, fallback io.Writer) io.Writer {
	if cfg.File == "" {
		return fallback
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// New builds a logger writing to w in the configured format.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup installs the configured logger as slog's default and returns a
// closer for the rotating file, if any.
func Setup(cfg config.LogConfig) (*slog.Logger, func() error) {
	w := Writer(cfg, os.Stderr)
	logger := New(cfg, w)
	slog.SetDefault(logger)

	closer := func() error { return nil }
	if lj, ok := w.(*lumberjack.Logger); ok {
		closer = lj.Close
	}
	return logger, closer
}
