package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anavel898/project-management-dashboard/internal/client"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

const timeLayout = "2006-01-02 15:04"

var (
	projectName        string
	projectDescription string
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
	Long:    "List, create, inspect, update and delete projects you own or participate in",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects you can access",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		projects, err := s.client.ListProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			cmd.Println("No projects found. Create one with:\n  pmctl projects create --name <name>")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tOWNER\tCREATED")
		for _, p := range projects {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Owner, p.CreatedOn.Local().Format(timeLayout))
		}
		return w.Flush()
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project owned by you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer resetProjectFlags()
		if strings.TrimSpace(projectName) == "" {
			return fmt.Errorf("--name is required")
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		view, err := s.client.CreateProject(projectName, projectDescription)
		if err != nil {
			return err
		}
		cmd.Printf("Created project %d '%s'\n", view.ID, view.Name)
		return nil
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show project details, documents and contributors",
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
		view, err := s.client.GetProject(id)
		if err != nil {
			return err
		}
		printProject(cmd, view)
		return nil
	},
}

var projectsUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Change a project's name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer resetProjectFlags()
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}

		var in client.ProjectInput
		if cmd.Flags().Changed("name") {
			in.Name = &projectName
		}
		if cmd.Flags().Changed("description") {
			in.Description = &projectDescription
		}
		if in.Name == nil && in.Description == nil {
			return fmt.Errorf("nothing to update: pass --name and/or --description")
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		view, err := s.client.UpdateProject(id, in)
		if err != nil {
			return err
		}
		cmd.Printf("Updated project %d '%s'\n", view.ID, view.Name)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project you own, with its documents and logo",
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
		if err := s.client.DeleteProject(id); err != nil {
			return err
		}
		cmd.Printf("Deleted project %d\n", id)
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite <project-id> <username>",
	Short: "Give a user participant access to a project you own",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		grant, err := s.client.GrantAccess(id, args[1])
		if err != nil {
			return err
		}
		cmd.Printf("User '%s' is now a %s of project %d\n", grant.Username, grant.Role, grant.ProjectID)
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <project-id> <email>",
	Short: "Email a join link for a project you own",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		res, err := s.client.Share(id, args[1])
		if err != nil {
			return err
		}
		s.log.WithField("message_id", res.MessageID).Debug("invite email accepted")
		cmd.Printf("Invite sent to %s\n", args[1])
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <project-id> <join-token>",
	Short: "Accept an emailed project invite",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		grant, err := s.client.Join(id, args[1])
		if err != nil {
			return err
		}
		cmd.Printf("Joined project %d as %s\n", grant.ProjectID, grant.Username)
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().StringVar(&projectName, "name", "", "Project name (required)")
	projectsCreateCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")
	projectsUpdateCmd.Flags().StringVar(&projectName, "name", "", "New project name")
	projectsUpdateCmd.Flags().StringVar(&projectDescription, "description", "", "New project description")

	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd, projectsShowCmd, projectsUpdateCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd, inviteCmd, shareCmd, joinCmd)
}

func resetProjectFlags() {
	projectName = ""
	projectDescription = ""
}

func printProject(cmd *cobra.Command, v *project.View) {
	cmd.Printf("Project %d: %s\n", v.ID, v.Name)
	if v.Description != "" {
		cmd.Printf("  Description: %s\n", v.Description)
	}
	cmd.Printf("  Created: %s by %s\n", v.CreatedOn.Local().Format(timeLayout), v.CreatedBy)
	if v.UpdatedBy != nil && v.UpdatedOn != nil {
		cmd.Printf("  Updated: %s by %s\n", v.UpdatedOn.Local().Format(timeLayout), *v.UpdatedBy)
	}
	if v.Logo != nil {
		cmd.Printf("  Logo: %s\n", *v.Logo)
	}
	cmd.Printf("  Contributors: %s\n", strings.Join(v.Contributors, ", "))
	if len(v.Documents) == 0 {
		cmd.Printf("  Documents: none\n")
		return
	}
	cmd.Printf("  Documents:\n")
	for _, d := range v.Documents {
		cmd.Printf("    %d  %s\n", d.ID, d.Name)
	}
}
