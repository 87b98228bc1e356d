package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/tasksync/internal/input"
	"github.com/marcus/tasksync/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errTitleRequired = errors.New("title is required")

var addCmd = &cobra.Command{
	Use:     "add [title...]",
	Aliases: []string{"create", "new"},
	Short:   "Add a task",
	Long: `Adds a task and queues it for the remote.

With no title on an interactive terminal, a form asks for one.`,
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		raw, _ := cmd.Flags().GetString("description")
		description, err := input.ExpandValue(raw, cmd.InOrStdin())
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if strings.TrimSpace(title) == "" {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				output.Error("%v", errTitleRequired)
				return errTitleRequired
			}
			if err := promptTask(&title, &description); err != nil {
				return err
			}
		}

		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		task, err := a.tasks.Create(title, description)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(task)
		}
		fmt.Printf("CREATED %s\n", task.ID)
		return nil
	},
}

// promptTask asks for a title and description on the terminal.
func promptTask(title, description *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(title).
				Placeholder("What needs doing?").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errTitleRequired
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Value(description).
				Placeholder("Markdown is fine"),
		),
	)
	return form.Run()
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("description", "d", "", "task description in markdown (- reads stdin, @file reads a file)")
	addCmd.Flags().Bool("json", false, "output the created task as JSON")
}
