package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show version",
	GroupID:     "system",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Println(version)
			return
		}
		fmt.Printf("tasksync version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "print only the version")
}
