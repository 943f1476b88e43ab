package main

import (
	"github.com/spf13/cobra"

	"github.com/anavel898/project-management-dashboard/internal/client"
)

var signupReq client.SignupRequest

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a projecthub account",
	Long:  "Register a new account. Run 'pmctl login' afterwards to start a session.",
	RunE:  runSignup,
}

func init() {
	signupCmd.Flags().StringVar(&signupReq.Username, "username", "", "Username (required)")
	signupCmd.Flags().StringVar(&signupReq.FullName, "full-name", "", "Full name")
	signupCmd.Flags().StringVar(&signupReq.Email, "email", "", "Email address (required)")
	signupCmd.Flags().StringVar(&signupReq.Password, "password", "", "Password (will prompt if not provided)")
	_ = signupCmd.MarkFlagRequired("username")
	_ = signupCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(signupCmd)
}

func runSignup(cmd *cobra.Command, args []string) error {
	defer func() { signupReq = client.SignupRequest{} }()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	if signupReq.Password == "" {
		signupReq.Password, err = readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}
	}

	user, err := s.client.Signup(signupReq)
	if err != nil {
		return err
	}

	cmd.Printf("Account '%s' created for %s. Run 'pmctl login --username %s' to sign in.\n", user.Username, user.Email, user.Username)
	return nil
}
