package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcus/tasksync/internal/config"
	"github.com/marcus/tasksync/internal/logging"
	"github.com/marcus/tasksync/internal/workdir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// skipConfigAnnotation marks commands that must run even when the config
// file does not load.
const skipConfigAnnotation = "tasksync:skip-config"

var (
	version    string
	workingDir string
	baseDir    string

	appCfg    *config.Config
	logCloser func() error
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Offline-first task list with queued sync",
	Long: `tasksync keeps a task list in a local SQLite store and replays every
change against a remote server in batches whenever it is reachable.

Edits never wait for the network: each one is queued and delivered by
'tasksync sync', by 'tasksync serve' on a timer, or right after the edit
when sync.auto is on.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initBaseDir(cmd); err != nil {
			return err
		}
		if cmd.Annotations[skipConfigAnnotation] != "" {
			return nil
		}
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if isMutatingCommand(cmd.Name()) {
			autoSyncAfterMutation(cmd.Context())
		}
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeLogs()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringP("dir", "C", "", "run as if started in this directory")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("remote", "", "remote server URL")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Task Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)

	// Assign built-in commands to system group
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

func initBaseDir(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot determine working directory: %w", err)
		}
		dir = wd
	}
	workingDir = dir
	baseDir = workdir.ResolveBaseDir(dir)
	return nil
}

func loadConfig(cmd *cobra.Command) error {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{
		File: file,
		Flags: map[string]*pflag.Flag{
			"log.level":  cmd.Flags().Lookup("log-level"),
			"remote.url": cmd.Flags().Lookup("remote"),
		},
	})
	if err != nil {
		return err
	}
	appCfg = cfg

	closeLogs()
	_, logCloser = logging.Setup(cfg.Log)
	return nil
}

func closeLogs() {
	if logCloser != nil {
		logCloser()
		logCloser = nil
	}
}

// getBaseDir returns the directory holding the .tasksync store
func getBaseDir() string {
	return baseDir
}

// configPath is the file `config set` writes to.
func configPath(cmd *cobra.Command) string {
	if file, _ := cmd.Flags().GetString("config"); file != "" {
		return file
	}
	return config.DefaultPath()
}
