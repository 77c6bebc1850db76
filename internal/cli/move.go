package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <message-id> <folder>",
		Short: "Move a message to another folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			dest, err := s.resolveFolder(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			newID, err := s.reader.MoveMessage(cmd.Context(), args[0], dest)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Moved. New id: %s\n", newID)
			return nil
		},
	}
	return cmd
}
