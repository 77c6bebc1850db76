package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"graphmail/internal/mimeparse"
)

func newReadCmd() *cobra.Command {
	var html bool
	var markRead bool

	cmd := &cobra.Command{
		Use:   "read <message-id>",
		Short: "Read a message by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			raw, err := s.reader.GetMessageMime(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			msg := mimeparse.Parse(raw)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "ID: %s\n", args[0])
			if v := msg.Subject(); v != "" {
				fmt.Fprintf(out, "Subject: %s\n", v)
			}
			if v := msg.Header("From"); v != "" {
				fmt.Fprintf(out, "From: %s\n", v)
			}
			if v := msg.To(); len(v) > 0 {
				fmt.Fprintf(out, "To: %s\n", strings.Join(v, ", "))
			}
			if v := msg.Cc(); len(v) > 0 {
				fmt.Fprintf(out, "Cc: %s\n", strings.Join(v, ", "))
			}
			if d := msg.Date(); !d.IsZero() {
				fmt.Fprintf(out, "Date: %s\n", d.Format("2006-01-02 15:04:05 -0700"))
			}
			if atts := msg.Attachments(); len(atts) > 0 {
				names := make([]string, 0, len(atts))
				for _, a := range atts {
					names = append(names, a.FileName)
				}
				fmt.Fprintf(out, "Attachments: %s\n", strings.Join(names, ", "))
			}
			fmt.Fprintln(out, "")

			body := msg.TextBody()
			if html || body == "" {
				if h := msg.HTMLBody(); h != "" {
					body = h
				}
			}
			fmt.Fprintln(out, body)

			if markRead {
				return s.reader.MarkAsRead(cmd.Context(), args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Print the HTML body instead of plain text")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "Mark the message as read afterwards")

	return cmd
}

func newRawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raw <message-id>",
		Short: "Print a message as raw MIME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			raw, err := s.reader.GetMessageMime(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), raw)
			return err
		},
	}
	return cmd
}
