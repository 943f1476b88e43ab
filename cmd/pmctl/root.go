package main

import (
	"fmt"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anavel898/project-management-dashboard/internal/client"
	"github.com/anavel898/project-management-dashboard/internal/cliconfig"
	"github.com/anavel898/project-management-dashboard/internal/keychain"
	"github.com/anavel898/project-management-dashboard/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "pmctl",
	Short:         "Command-line client for projecthub",
	Long:          "pmctl manages projecthub projects, members, documents and logos from the terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// keychainFactory is swapped for an in-memory keychain in tests
var keychainFactory func() keychain.Keychain = func() keychain.Keychain {
	return keychain.NewSystemKeychain(keychain.ServiceName)
}

// readPassword prompts on the terminal without echo. Replaced in tests.
var readPassword = func(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// session bundles what most commands need: the loaded config, a logger
// writing to the command's stderr and an authenticated client.
type session struct {
	cfg    *cliconfig.Config
	log    *logrus.Logger
	client *client.AuthenticatedClient
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := cliconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, _, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Output: cmd.ErrOrStderr(),
		Text:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}
	if cfg.IsInsecure() {
		log.WithField("server", cfg.Server.URL).Warn("server URL uses plain http; credentials are sent unencrypted")
	}
	log.WithField("server", cfg.Server.URL).Debug("using server")

	return &session{
		cfg:    cfg,
		log:    log,
		client: client.NewAuthenticatedClient(cfg.Server.URL, keychainFactory()),
	}, nil
}

// parseID reads a numeric project or document id argument.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q: must be a positive integer", kind, arg)
	}
	return id, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
