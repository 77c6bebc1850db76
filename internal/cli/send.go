package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"graphmail/internal/graph"
)

func newSendCmd() *cobra.Command {
	var to string
	var cc string
	var bcc string
	var replyTo string
	var subject string
	var body string
	var bodyFile string
	var html bool
	var importance string
	var attachments []string
	var headers []string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email from the configured mailbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := loadBody(body, bodyFile)
			if err != nil {
				return err
			}

			msg := graph.OutgoingMessage{
				To:         graph.SplitAddresses(to),
				Cc:         graph.SplitAddresses(cc),
				Bcc:        graph.SplitAddresses(bcc),
				ReplyTo:    graph.SplitAddresses(replyTo),
				Subject:    subject,
				Body:       content,
				IsHTML:     html,
				Importance: importance,
			}
			if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
				return fmt.Errorf("at least one recipient is required")
			}

			for _, h := range headers {
				name, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, want Name: value", h)
				}
				msg.Headers = append(msg.Headers, graph.Header{
					Name:  strings.TrimSpace(name),
					Value: strings.TrimSpace(value),
				})
			}

			for _, path := range attachments {
				att, err := graph.AttachmentFromFile(path)
				if err != nil {
					return err
				}
				msg.Attachments = append(msg.Attachments, att)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := s.sender.SendMessage(cmd.Context(), msg); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Sent.")
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Comma-separated recipients")
	cmd.Flags().StringVar(&cc, "cc", "", "Comma-separated CC recipients")
	cmd.Flags().StringVar(&bcc, "bcc", "", "Comma-separated BCC recipients")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "Comma-separated Reply-To addresses")
	cmd.Flags().StringVar(&subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&body, "body", "", "Message body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Path to file containing message body")
	cmd.Flags().BoolVar(&html, "html", false, "Treat the body as HTML")
	cmd.Flags().StringVar(&importance, "importance", "", "low, normal or high")
	cmd.Flags().StringSliceVar(&attachments, "attachment", nil, "Attachment file paths (repeatable)")
	cmd.Flags().StringArrayVar(&headers, "header", nil, "Extra X- header as 'Name: value' (repeatable)")

	return cmd
}
