package cmd

import (
	"fmt"
	"time"

	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/output"
	"github.com/spf13/cobra"
)

// statusReport is the JSON shape of `tasksync status`.
type statusReport struct {
	Remote     string                    `json:"remote"`
	Online     *bool                     `json:"online,omitempty"`
	Pending    int                       `json:"pending"`
	Tasks      map[models.SyncStatus]int `json:"tasks"`
	LastSyncAt *time.Time                `json:"last_sync_at"`
	LastOK     int                       `json:"last_success"`
	LastErrors int                       `json:"last_errors"`
	LastTotal  int                       `json:"last_total"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show queue depth, last sync and remote reachability",
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		pending, err := a.db.CountPendingSyncItems()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		counts, err := a.db.CountTasksBySyncStatus()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		state, err := a.db.GetSyncState()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		report := statusReport{
			Remote:     a.cfg.Remote.URL,
			Pending:    pending,
			Tasks:      counts,
			LastSyncAt: state.LastSyncAt,
			LastOK:     state.LastSuccess,
			LastErrors: state.LastErrors,
			LastTotal:  state.LastTotal,
		}
		if offline, _ := cmd.Flags().GetBool("offline"); !offline {
			online := a.engine.CheckConnectivity(cmd.Context())
			report.Online = &online
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(report)
		}

		reach := "not checked"
		if report.Online != nil {
			reach = "unreachable"
			if *report.Online {
				reach = "online"
			}
		}
		fmt.Printf("Remote:   %s (%s)\n", report.Remote, reach)
		fmt.Printf("Queued:   %d operations\n", pending)
		fmt.Printf("Tasks:    %d pending, %d synced, %d error\n",
			counts[models.SyncStatusPending], counts[models.SyncStatusSynced], counts[models.SyncStatusError])
		if state.LastSyncAt == nil {
			fmt.Println("Last sync: never")
		} else {
			fmt.Printf("Last sync: %s (%d/%d ok)\n", output.FormatTimeAgo(*state.LastSyncAt), state.LastSuccess, state.LastTotal)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("offline", false, "skip the remote health check")
	statusCmd.Flags().Bool("json", false, "output as JSON")
}
