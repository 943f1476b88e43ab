package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anavel898/project-management-dashboard/internal/client"
)

var logoCmd = &cobra.Command{
	Use:   "logo",
	Short: "Manage a project's logo",
}

var logoUploadCmd = &cobra.Command{
	Use:   "upload <project-id> <file>",
	Short: "Set or replace the project logo (png or jpeg)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}
		f, err := client.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		logo, err := s.client.UploadLogo(id, f)
		if err != nil {
			return err
		}
		cmd.Printf("Logo '%s' set for project %d\n", logo.Name, logo.ProjectID)
		return nil
	},
}

var logoDownloadCmd = &cobra.Command{
	Use:   "download <project-id>",
	Short: "Download the project logo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer func() { outputDir = "" }()
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		f, err := s.client.DownloadLogo(id)
		if err != nil {
			return err
		}
		path, err := saveDownload(s, f)
		if err != nil {
			return err
		}
		cmd.Printf("Saved logo of project %d to %s\n", id, path)
		return nil
	},
}

var logoDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Remove the project logo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		if err := s.client.DeleteLogo(id); err != nil {
			return err
		}
		cmd.Printf("Removed logo of project %d\n", id)
		return nil
	},
}

func init() {
	logoDownloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to write to (defaults to downloads.directory)")
	logoCmd.AddCommand(logoUploadCmd, logoDownloadCmd, logoDeleteCmd)
	rootCmd.AddCommand(logoCmd)
}
