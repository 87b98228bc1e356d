package cmd

import (
	"fmt"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	Short:   "List queued operations, oldest first",
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		items, err := a.db.PendingSyncItems()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			if items == nil {
				items = []*models.SyncQueueItem{}
			}
			return output.JSON(items)
		}
		if len(items) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}
		for _, item := range items {
			fmt.Println(output.FormatQueueItem(item))
		}
		return nil
	},
}

var queueDropCmd = &cobra.Command{
	Use:   "drop <task-id>",
	Short: "Discard a task's queued operations and mark it error",
	Long: `Removes queued operations without sending them. With --item only that
operation is removed. The task is marked error so it shows up as out of sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		taskID := db.NormalizeTaskID(args[0])
		var removal models.QueueRemoval
		if itemID, _ := cmd.Flags().GetString("item"); itemID != "" {
			item, err := a.db.GetSyncItem(itemID)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if item.TaskID != taskID {
				err := fmt.Errorf("queue item %s belongs to %s, not %s", itemID, item.TaskID, taskID)
				output.Error("%v", err)
				return err
			}
			removal.ItemIDs = []string{itemID}
		} else {
			removal.AllForTask = true
		}

		// Counted up front for the message; the removal itself and the
		// status change commit together.
		dropped := len(removal.ItemIDs)
		if removal.AllForTask {
			items, err := a.db.SyncItemsForTask(taskID)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			dropped = len(items)
		}

		err = a.db.ApplySyncOutcome(taskID, func(task *models.Task) models.QueueRemoval {
			if task != nil {
				task.SyncStatus = models.SyncStatusError
			}
			return removal
		})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Printf("DROPPED %d operations for %s\n", dropped, taskID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().Bool("json", false, "output as JSON")

	queueCmd.AddCommand(queueDropCmd)
	queueDropCmd.Flags().String("item", "", "drop only this queue item")
}
