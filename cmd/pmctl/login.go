package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the projecthub server",
	Long:  "Login to the projecthub server and store the session token securely in the OS keychain.",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "Username")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (will prompt if not provided)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	// Reset flags for reuse in tests
	defer func() {
		loginUsername = ""
		loginPassword = ""
	}()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	if loginUsername == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Username: ")
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &loginUsername); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	if loginPassword == "" {
		loginPassword, err = readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}
	}

	if err := s.client.Login(loginUsername, loginPassword); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	s.log.WithField("username", loginUsername).Debug("session stored in keychain")

	fmt.Fprintln(cmd.OutOrStdout(), "Login successful! Token stored securely.")
	return nil
}
