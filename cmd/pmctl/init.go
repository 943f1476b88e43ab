package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anavel898/project-management-dashboard/internal/cliconfig"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  "Create the pmctl configuration file and the default downloads directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir := cliconfig.GetConfigDir()
		configPath := cliconfig.GetConfigPath()

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration already exists at %s\n\nTo reconfigure, either:\n  1. Edit the file directly, or\n  2. Delete it and run 'pmctl init' again, or\n  3. Use 'pmctl config set <key> <value>' to update specific values", configPath)
		}

		cfg := cliconfig.Default()
		if err := os.MkdirAll(cfg.Downloads.Directory, 0755); err != nil {
			return fmt.Errorf("failed to create downloads directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		cmd.Printf("Configuration initialized at %s\n", configDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
