package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"graphmail/internal/compat"
	"graphmail/internal/graph"
	"graphmail/internal/message"
)

func newSendEMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send-eml <file>",
		Short: "Send a prepared RFC 822 message file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			msg := message.Load(string(data))

			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			client := compat.NewSendClient(s.tokens, s.logger,
				graph.WithBaseURL(s.cfg.Graph.BaseURL),
				graph.WithLogger(s.logger),
			)
			identity := compat.Identity{
				ClientID: s.cfg.Graph.ClientID,
				TenantID: s.cfg.Graph.TenantID,
				Sender:   s.cfg.Graph.Mailbox,
			}
			if err := client.Authenticate(cmd.Context(), identity.String(), s.cfg.Graph.ClientSecret); err != nil {
				return err
			}
			defer client.Disconnect()

			if err := client.Send(cmd.Context(), msg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent %q.\n", msg.Subject)
			return nil
		},
	}
	return cmd
}
