package cmd

import (
	"errors"
	"fmt"

	"github.com/marcus/tasksync/internal/output"
	"github.com/marcus/tasksync/internal/scheduler"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send queued changes to the remote",
	Long: `Checks that the remote is reachable, then sends every queued operation
in batches. Operations that fail stay queued and are retried on the next
sync; after sync.max_retries failures an operation is dropped and its task
is marked error.`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		skip, _ := cmd.Flags().GetBool("skip-check")
		jsonOut, _ := cmd.Flags().GetBool("json")

		res, err := a.runner.Run(cmd.Context(), scheduler.RunOptions{SkipCheck: skip})
		if errors.Is(err, scheduler.ErrRemoteUnreachable) {
			pending, _ := a.db.CountPendingSyncItems()
			if jsonOut {
				output.JSONError(output.ErrCodeRemoteUnreachable, err.Error())
			} else {
				output.Warning("%s is unreachable; %d operations stay queued", a.cfg.Remote.URL, pending)
			}
			return err
		}
		if err != nil {
			output.Error("sync: %v", err)
			return err
		}

		if jsonOut {
			return output.JSON(res)
		}

		if res.Total == 0 && res.Deferred == 0 {
			fmt.Println("Nothing to sync")
			return nil
		}
		summary := fmt.Sprintf("Synced %d/%d operations in %d batches", res.SuccessCount, res.Total, res.Batches)
		if res.ErrorCount == 0 {
			output.Success("%s", summary)
		} else {
			output.Warning("%s, %d failed", summary, res.ErrorCount)
		}
		if res.Deferred > 0 {
			fmt.Printf("%d operations waiting for retry backoff\n", res.Deferred)
		}
		for _, f := range res.Failures {
			line := fmt.Sprintf("  %s: %s (attempt %d)", f.TaskID, f.Message, f.RetryCount)
			if f.Abandoned {
				line += " - dropped, task marked error"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("skip-check", false, "send without probing the remote's health first")
	syncCmd.Flags().Bool("json", false, "output the result as JSON")
}
