package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a task store in the current directory",
	Long: `Creates the local .tasksync directory and SQLite database. When the
directory has a .gitignore, .tasksync/ is added to it.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := workingDir

		if _, err := os.Stat(db.Path(dir)); err == nil {
			output.Warning(".tasksync/ already exists")
			return nil
		}

		database, err := db.Initialize(dir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer database.Close()

		fmt.Printf("INITIALIZED %s\n", filepath.Dir(db.Path(dir)))

		added, err := ignoreStoreDir(filepath.Join(dir, ".gitignore"))
		if err != nil {
			output.Warning("could not update .gitignore: %v", err)
		} else if added {
			fmt.Println("Added .tasksync/ to .gitignore")
		}
		return nil
	},
}

// ignoreStoreDir appends .tasksync/ to an existing .gitignore unless an
// entry for it is already there. A missing file is left alone.
func ignoreStoreDir(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		switch strings.TrimSpace(line) {
		case ".tasksync", ".tasksync/", "/.tasksync", "/.tasksync/":
			return false, nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return false, err
	}
	defer f.Close()
	entry := ".tasksync/\n"
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry); err != nil {
		return false, err
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
