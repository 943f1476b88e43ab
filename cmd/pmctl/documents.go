package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anavel898/project-management-dashboard/internal/client"
)

var outputDir string

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage project documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List the documents of a project",
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
		docs, err := s.client.ListDocuments(id)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			cmd.Printf("Project %d has no documents\n", id)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDED BY\tADDED")
		for _, d := range docs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, d.Name, d.AddedBy, d.AddedOn.Local().Format(timeLayout))
		}
		return w.Flush()
	},
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload <project-id> <file>...",
	Short: "Upload one or more files to a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}
		files := make([]client.File, 0, len(args)-1)
		for _, path := range args[1:] {
			f, err := client.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			files = append(files, f)
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		docs, err := s.client.UploadDocuments(id, files...)
		if err != nil {
			return err
		}
		for _, d := range docs {
			cmd.Printf("Uploaded '%s' as document %d\n", d.Name, d.ID)
		}
		return nil
	},
}

var documentsDownloadCmd = &cobra.Command{
	Use:   "download <document-id>",
	Short: "Download a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer func() { outputDir = "" }()
		id, err := parseID("document", args[0])
		if err != nil {
			return err
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		f, err := s.client.DownloadDocument(id)
		if err != nil {
			return err
		}
		path, err := saveDownload(s, f)
		if err != nil {
			return err
		}
		cmd.Printf("Saved document %d to %s\n", id, path)
		return nil
	},
}

var documentsReplaceCmd = &cobra.Command{
	Use:   "replace <document-id> <file>",
	Short: "Replace the content of a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("document", args[0])
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
		doc, err := s.client.ReplaceDocument(id, f)
		if err != nil {
			return err
		}
		cmd.Printf("Replaced document %d with '%s'\n", doc.ID, doc.Name)
		return nil
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("document", args[0])
		if err != nil {
			return err
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		if err := s.client.DeleteDocument(id); err != nil {
			return err
		}
		cmd.Printf("Deleted document %d\n", id)
		return nil
	},
}

func init() {
	documentsDownloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to write to (defaults to downloads.directory)")
	documentsCmd.AddCommand(documentsListCmd, documentsUploadCmd, documentsDownloadCmd, documentsReplaceCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

// saveDownload writes f into --output or the configured downloads
// directory and returns the path written.
func saveDownload(s *session, f *client.File) (string, error) {
	dir := outputDir
	if dir == "" {
		dir = s.cfg.Downloads.Directory
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(f.Name))
	if err := os.WriteFile(path, f.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.log.WithField("bytes", len(f.Data)).Debug("download written")
	return path, nil
}
