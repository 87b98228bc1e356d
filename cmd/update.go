package cmd

import (
	"fmt"

	"github.com/marcus/tasksync/internal/input"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/output"
	"github.com/marcus/tasksync/internal/tasks"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Aliases: []string{"edit"},
	Short:   "Change a task's title, description or completion",
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch tasks.Patch
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			patch.Title = &v
		}
		if flags.Changed("description") {
			raw, _ := flags.GetString("description")
			v, err := input.ExpandValue(raw, cmd.InOrStdin())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			patch.Description = &v
		}
		if flags.Changed("completed") {
			v, _ := flags.GetBool("completed")
			patch.Completed = &v
		}
		if flags.Changed("open") {
			v, _ := flags.GetBool("open")
			v = !v
			patch.Completed = &v
		}
		return applyPatch(cmd, args[0], patch, "UPDATED")
	},
}

var doneCmd = &cobra.Command{
	Use:     "done <id>",
	Short:   "Mark a task completed",
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		completed := true
		return applyPatch(cmd, args[0], tasks.Patch{Completed: &completed}, "COMPLETED")
	},
}

func applyPatch(cmd *cobra.Command, id string, patch tasks.Patch, verb string) error {
	a, err := openApp()
	if err != nil {
		output.Error("%v", err)
		return err
	}
	defer a.Close()

	task, err := a.tasks.Update(id, patch)
	if err != nil {
		output.Error("%v", err)
		return err
	}
	printMutation(cmd, task, verb)
	return nil
}

func printMutation(cmd *cobra.Command, task *models.Task, verb string) {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		output.JSON(task)
		return
	}
	fmt.Printf("%s %s\n", verb, task.ID)
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().StringP("description", "d", "", "new description (- reads stdin, @file reads a file)")
	updateCmd.Flags().Bool("completed", false, "mark completed")
	updateCmd.Flags().Bool("open", false, "mark not completed")
	updateCmd.MarkFlagsMutuallyExclusive("completed", "open")
	updateCmd.Flags().Bool("json", false, "output the task as JSON")

	rootCmd.AddCommand(doneCmd)
	doneCmd.Flags().Bool("json", false, "output the task as JSON")
}
