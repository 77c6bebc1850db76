package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folders",
		Aliases: []string{"mailboxes"},
		Short:   "Mail folder operations",
	}
	cmd.AddCommand(newFoldersListCmd())
	return cmd
}

func newFoldersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List top-level mail folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			folders, err := s.reader.ListFolders(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tUNREAD\tTOTAL\tID")
			for _, f := range folders {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", f.DisplayName, f.UnreadItemCount, f.TotalItemCount, f.ID)
			}
			return tw.Flush()
		},
	}
	return cmd
}
