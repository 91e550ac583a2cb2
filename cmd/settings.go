package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rws-cli/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or clear the saved input settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved input settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := settings.Path(cfg.Workspace)
		s, found, err := settings.Load(path)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(os.Stderr, "No settings saved at %s.\n", path)
			return nil
		}
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(s)
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved input settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := settings.Path(cfg.Workspace)
		if err := settings.Clear(path); err != nil {
			return err
		}
		fmt.Printf("Cleared %s\n", path)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	rootCmd.AddCommand(settingsCmd)
}
