package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Change a message's read state",
	}
	cmd.AddCommand(newMarkStateCmd("read", true))
	cmd.AddCommand(newMarkStateCmd("unread", false))
	return cmd
}

func newMarkStateCmd(name string, read bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <message-id>...",
		Short: "Mark messages as " + name,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			for _, id := range args {
				if read {
					err = s.reader.MarkAsRead(cmd.Context(), id)
				} else {
					err = s.reader.MarkAsUnread(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d as %s.\n", len(args), name)
			return nil
		},
	}
	return cmd
}
