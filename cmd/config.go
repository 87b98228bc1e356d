package cmd

import (
	"fmt"
	"strings"

	"github.com/marcus/tasksync/internal/config"
	"github.com/marcus/tasksync/internal/output"
	"github.com/marcus/tasksync/internal/suggest"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage tasksync configuration",
	GroupID:     "system",
	Annotations: map[string]string{skipConfigAnnotation: "true"},
}

var configSetCmd = &cobra.Command{
	Use:         "set <key> <value>",
	Short:       "Set a config value",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsKnownKey(args[0]) {
			err := unknownKeyError(args[0])
			output.Error("%v", err)
			return err
		}
		path := configPath(cmd)
		if err := config.SetValue(path, args[0], args[1]); err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Printf("SET %s = %s (%s)\n", args[0], args[1], path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:         "show [key]",
	Aliases:     []string{"get", "list"},
	Short:       "Show effective config values",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("config")
		settings, err := config.Settings(config.Options{File: file})
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if len(args) == 1 {
			v, ok := settings[args[0]]
			if !ok {
				err := unknownKeyError(args[0])
				output.Error("%v", err)
				return err
			}
			fmt.Println(v)
			return nil
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(settings)
		}
		for _, key := range config.Keys() {
			fmt.Printf("%-24s %s\n", key, settings[key])
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(configPath(cmd))
	},
}

func unknownKeyError(key string) error {
	if similar := suggest.Similar(key, config.Keys()); len(similar) > 0 {
		return fmt.Errorf("unknown config key %q (did you mean %s?)", key, strings.Join(similar, ", "))
	}
	return fmt.Errorf("unknown config key %q", key)
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configShowCmd, configPathCmd)
	configShowCmd.Flags().Bool("json", false, "output as JSON")
}
