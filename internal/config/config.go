// Package config loads tasksync settings from defaults, an optional YAML
// file, TASKSYNC_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TASKSYNC"
	appDir    = "tasksync"
	fileName  = "config.yaml"
)

// Config is the full set of settings.
type Config struct {
	Remote  RemoteConfig  `mapstructure:"remote"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Server  ServerConfig  `mapstructure:"server"`
	Demo    DemoConfig    `mapstructure:"demo"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Log     LogConfig     `mapstructure:"log"`
}

// RemoteConfig points at the remote authority.
type RemoteConfig struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout"`
}

type SyncConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Interval    time.Duration `mapstructure:"interval"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"`
	// Auto runs a quick pass after each mutating CLI command.
	Auto bool `mapstructure:"auto"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DemoRemote      bool          `mapstructure:"demo_remote"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DemoConfig drives the standalone tasksync-remote binary.
type DemoConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	MaxBatch   int    `mapstructure:"max_batch"`
	APIKey     string `mapstructure:"api_key"`
}

// WebhookConfig posts a signed summary after each sync pass when URL is set.
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Defaults maps every known key to its default value.
var Defaults = map[string]any{
	"remote.url":             "http://localhost:8080",
	"remote.api_key":         "",
	"remote.request_timeout": 30 * time.Second,
	"remote.health_timeout":  5 * time.Second,

	"sync.batch_size":   10,
	"sync.max_retries":  3,
	"sync.interval":     5 * time.Minute,
	"sync.backoff_base": time.Duration(0),
	"sync.backoff_max":  time.Hour,
	"sync.auto":         false,

	"server.listen_addr":      ":8090",
	"server.shutdown_timeout": 30 * time.Second,
	"server.demo_remote":      false,
	"server.max_body_bytes":   int64(10 << 20),
	"server.cors_origins":     []string{},

	"demo.listen_addr": ":8080",
	"demo.max_batch":   1000,
	"demo.api_key":     "",

	"webhook.url":     "",
	"webhook.secret":  "",
	"webhook.timeout": 10 * time.Second,

	"log.level":        "info",
	"log.format":       "text",
	"log.file":         "",
	"log.max_size_mb":  50,
	"log.max_backups":  3,
	"log.max_age_days": 28,
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. Empty means DefaultPath, which may
	// be missing.
	File string
	// Flags binds config keys to command-line flags.
	Flags map[string]*pflag.Flag
}

// DefaultPath returns $XDG_CONFIG_HOME/tasksync/config.yaml (or the
// platform equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", fileName)
	}
	return filepath.Join(dir, appDir, fileName)
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the effective configuration.
func Load(opts Options) (*Config, error) {
	v := newViper()

	path := opts.File
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Remote.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("remote.url %q: must be an http(s) URL", c.Remote.URL)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries must not be negative, got %d", c.Sync.MaxRetries)
	}
	if c.Sync.BackoffBase < 0 || c.Sync.Interval < 0 {
		return fmt.Errorf("sync durations must not be negative")
	}
	if c.Webhook.URL != "" {
		u, err := url.Parse(c.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhook.url %q: must be an http(s) URL", c.Webhook.URL)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	return nil
}

// Keys lists every known key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(Defaults))
	for k := range Defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a config setting.
func IsKnownKey(key string) bool {
	_, ok := Defaults[key]
	return ok
}

// SetValue writes key=value into the config file at path, creating it if
// needed. The file is replaced atomically.
func SetValue(path, key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.Set(key, value)

	// Reject values that would make the next Load fail
	check := newViper()
	if err := check.MergeConfigMap(v.AllSettings()); err != nil {
		return err
	}
	var cfg Config
	if err := check.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := v.WriteConfigAs(tmpName); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmpName, path)
}

// Settings returns the effective value of every known key as a string,
// for display.
func Settings(opts Options) (map[string]string, error) {
	cfg, err := Load(opts)
	if err != nil {
		return nil, err
	}
	out := map[string]string{
		"remote.url":              cfg.Remote.URL,
		"remote.api_key":          redact(cfg.Remote.APIKey),
		"remote.request_timeout":  cfg.Remote.RequestTimeout.String(),
		"remote.health_timeout":   cfg.Remote.HealthTimeout.String(),
		"sync.batch_size":         fmt.Sprint(cfg.Sync.BatchSize),
		"sync.max_retries":        fmt.Sprint(cfg.Sync.MaxRetries),
		"sync.interval":           cfg.Sync.Interval.String(),
		"sync.backoff_base":       cfg.Sync.BackoffBase.String(),
		"sync.backoff_max":        cfg.Sync.BackoffMax.String(),
		"sync.auto":               fmt.Sprint(cfg.Sync.Auto),
		"server.listen_addr":      cfg.Server.ListenAddr,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		"server.demo_remote":      fmt.Sprint(cfg.Server.DemoRemote),
		"server.max_body_bytes":   fmt.Sprint(cfg.Server.MaxBodyBytes),
		"server.cors_origins":     strings.Join(cfg.Server.CORSOrigins, ","),
		"demo.listen_addr":        cfg.Demo.ListenAddr,
		"demo.max_batch":          fmt.Sprint(cfg.Demo.MaxBatch),
		"demo.api_key":            redact(cfg.Demo.APIKey),
		"webhook.url":             cfg.Webhook.URL,
		"webhook.secret":          redact(cfg.Webhook.Secret),
		"webhook.timeout":         cfg.Webhook.Timeout.String(),
		"log.level":               cfg.Log.Level,
		"log.format":              cfg.Log.Format,
		"log.file":                cfg.Log.File,
		"log.max_size_mb":         fmt.Sprint(cfg.Log.MaxSizeMB),
		"log.max_backups":         fmt.Sprint(cfg.Log.MaxBackups),
		"log.max_age_days":        fmt.Sprint(cfg.Log.MaxAgeDays),
	}
	return out, nil
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
