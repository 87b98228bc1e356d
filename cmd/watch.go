package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/tasksync/internal/output"
	"github.com/marcus/tasksync/internal/tui/monitor"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of the sync queue",
	Long: `Shows queued operations, task sync counts and the last pass, refreshed
every --interval.

Key bindings:
  s    Sync now
  r    Force refresh
  j/k  Scroll queue
  ?    Toggle help
  q    Quit`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < 500*time.Millisecond {
			interval = 2 * time.Second
		}

		model := monitor.NewModel(a.db, a.runner, interval)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running watch: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 2*time.Second, "refresh interval")
}
