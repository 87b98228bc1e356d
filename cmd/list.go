package cmd

import (
	"fmt"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	GroupID: "core",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		var opts db.ListTasksOptions
		opts.IncludeDeleted, _ = cmd.Flags().GetBool("all")
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		statuses, _ := cmd.Flags().GetStringSlice("sync-status")
		for _, s := range statuses {
			status := models.SyncStatus(s)
			if !models.IsValidSyncStatus(status) {
				err := fmt.Errorf("unknown sync status %q (want pending, synced or error)", s)
				output.Error("%v", err)
				return err
			}
			opts.SyncStatus = append(opts.SyncStatus, status)
		}

		list, err := a.tasks.List(opts)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			if list == nil {
				list = []*models.Task{}
			}
			return output.JSON(list)
		}

		if len(list) == 0 {
			fmt.Println("No tasks")
			return nil
		}
		titleWidth := max(output.TerminalWidth(80)-40, 20)
		for _, task := range list {
			fmt.Println(output.FormatTaskShort(task, titleWidth))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolP("all", "a", false, "include deleted tasks")
	listCmd.Flags().StringSlice("sync-status", nil, "only tasks with these sync statuses")
	listCmd.Flags().IntP("limit", "n", 0, "maximum tasks to show")
	listCmd.Flags().Bool("json", false, "output as JSON")
}
