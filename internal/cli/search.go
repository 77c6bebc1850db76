package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			folderID := ""
			if folder != "" {
				if folderID, err = s.resolveFolder(cmd.Context(), folder); err != nil {
					return err
				}
			}

			messages, err := s.reader.SearchMessages(cmd.Context(), args[0], folderID)
			if err != nil {
				return err
			}

			scope := "all folders"
			if folder != "" {
				scope = folder
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Search: %s in %s (%d found)\n", args[0], scope, len(messages))
			printMessages(cmd.OutOrStdout(), messages)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Limit the search to a folder (display name or id)")

	return cmd
}
