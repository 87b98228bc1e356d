package api

import (
	"time"

	"github.com/marcus/tasksync/internal/config"
)

// Config holds the trigger surface settings.
type Config struct {
	ListenAddr         string
	ShutdownTimeout    time.Duration
	MaxBodyBytes       int64
	CORSAllowedOrigins []string // empty = CORS disabled
}

// ConfigFrom picks the server settings out of the loaded configuration.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		ListenAddr:         cfg.Server.ListenAddr,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	return c
}
