package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "graphmail",
		Short:        "graphmail reads and sends mail through Microsoft Graph",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("verbose", false, "Log Graph and token requests to stderr")
	cmd.PersistentFlags().String("mailbox", "", "Mailbox to act on (overrides graph.mailbox)")

	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newFoldersCmd())
	cmd.AddCommand(newInboxCmd())
	cmd.AddCommand(newMailCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newRawCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newMarkCmd())
	cmd.AddCommand(newMoveCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newSendEMLCmd())
	cmd.AddCommand(newAttachmentsCmd())
	cmd.AddCommand(newConfigCmd())

	cmd.SetErr(os.Stderr)
	cmd.SetOut(os.Stdout)

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
