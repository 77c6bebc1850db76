package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"graphmail/internal/graph"
)

func printMessages(out io.Writer, messages []graph.Message) {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFLAGS\tFROM\tSUBJECT")
	for _, msg := range messages {
		date := ""
		if !msg.ReceivedDateTime.IsZero() {
			date = msg.ReceivedDateTime.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", msg.ID, date, flagsOf(msg), msg.From.String(), msg.Subject)
	}
	_ = tw.Flush()
}

// flagsOf renders U for unread, A for attachments and ! for high importance.
func flagsOf(msg graph.Message) string {
	flags := ""
	if !msg.IsRead {
		flags += "U"
	}
	if msg.HasAttachments {
		flags += "A"
	}
	if msg.Importance == "high" {
		flags += "!"
	}
	if flags == "" {
		flags = "-"
	}
	return flags
}
