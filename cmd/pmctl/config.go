package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anavel898/project-management-dashboard/internal/cliconfig"
	"github.com/anavel898/project-management-dashboard/internal/logging"
)

// configKey is one settable entry of the pmctl config file.
type configKey struct {
	name   string
	help   string
	get    func(*cliconfig.Config) string
	set    func(*cliconfig.Config, string) error
	envVar string
}

var configKeys = []configKey{
	{
		name:   "server.url",
		help:   "projecthub server URL",
		get:    func(c *cliconfig.Config) string { return c.Server.URL },
		set:    func(c *cliconfig.Config, v string) error { c.Server.URL = v; return nil },
		envVar: cliconfig.EnvServerURL,
	},
	{
		name: "downloads.directory",
		help: "Where downloaded documents and logos are written",
		get:  func(c *cliconfig.Config) string { return c.Downloads.Directory },
		set: func(c *cliconfig.Config, v string) error {
			if v == "" {
				return fmt.Errorf("downloads.directory cannot be empty")
			}
			c.Downloads.Directory = v
			return nil
		},
	},
	{
		name: "logging.level",
		help: "Logging level (debug, info, warn, error)",
		get:  func(c *cliconfig.Config) string { return c.Logging.Level },
		set: func(c *cliconfig.Config, v string) error {
			if _, err := logging.ParseLevel(v); err != nil {
				return err
			}
			c.Logging.Level = v
			return nil
		},
	},
}

func lookupConfigKey(name string) (configKey, bool) {
	for _, k := range configKeys {
		if k.name == name {
			return k, true
		}
	}
	return configKey{}, false
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  "View and update pmctl configuration settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long:  "Display the effective configuration. Values overridden by the environment are marked.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, k := range configKeys {
			value := k.get(cfg)
			if k.envVar != "" && os.Getenv(k.envVar) != "" {
				value += " (from " + k.envVar + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\n", k.name, value)
		}
		return tw.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value>",
	Short:             "Update configuration value",
	Long:              "Update a configuration value in the config file. Example: pmctl config set server.url https://hub.example.com",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: configKeyCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, value := args[0], args[1]

		k, ok := lookupConfigKey(name)
		if !ok {
			return fmt.Errorf("unknown config key %q (run 'pmctl config show' to list keys)", name)
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := k.set(cfg, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		cmd.Printf("Updated %s to: %s\n", name, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configKeyCompletion provides tab completion for config keys
func configKeyCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) >= 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	keys := make([]string, 0, len(configKeys))
	for _, k := range configKeys {
		keys = append(keys, k.name+"\t"+k.help)
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}
