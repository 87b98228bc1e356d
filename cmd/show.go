package cmd

import (
	"fmt"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a task with its sync state and queued operations",
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		id := db.NormalizeTaskID(args[0])
		task, err := a.db.GetTaskIncludingDeleted(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		queued, err := a.db.SyncItemsForTask(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			if queued == nil {
				queued = []*models.SyncQueueItem{}
			}
			return output.JSON(map[string]any{"task": task, "queue": queued})
		}

		rendered := ""
		if raw, _ := cmd.Flags().GetBool("raw"); !raw {
			if rendered, err = output.RenderMarkdown(task.Description); err != nil {
				a.logger.Debug("render description", "err", err)
				rendered = ""
			}
		}
		fmt.Println(output.FormatTaskLong(task, rendered, queued))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("json", false, "output as JSON")
	showCmd.Flags().Bool("raw", false, "print the description without markdown rendering")
}
