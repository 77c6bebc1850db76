package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"graphmail/internal/graph"
)

func newMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Mail operations",
	}
	cmd.AddCommand(newMailListCmd())
	return cmd
}

func newMailListCmd() *cobra.Command {
	var folder string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages in a folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			if folder == "" {
				folder = "Inbox"
			}
			folderID, err := s.resolveFolder(cmd.Context(), folder)
			if err != nil {
				return err
			}

			messages, err := s.reader.ListMessages(cmd.Context(), folderID, limit)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Folder: %s (%d shown)\n", folder, len(messages))
			printMessages(cmd.OutOrStdout(), messages)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "Inbox", "Folder display name or id")
	cmd.Flags().IntVar(&limit, "limit", graph.DefaultPageSize, "Maximum messages to list")

	return cmd
}
