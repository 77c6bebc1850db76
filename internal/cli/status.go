package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show inbox counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			inbox, err := s.reader.GetInbox(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d messages, %d unread\n", inbox.DisplayName, inbox.TotalItemCount, inbox.UnreadItemCount)
			return nil
		},
	}
	return cmd
}
