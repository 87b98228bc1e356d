package cmd

import (
	"github.com/marcus/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long:    `Soft-deletes a task locally and queues the delete for the remote.`,
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		task, err := a.tasks.Delete(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		printMutation(cmd, task, "DELETED")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().Bool("json", false, "output the task as JSON")
}
