package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"graphmail/internal/mimeparse"
)

func newAttachmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "Attachment operations",
	}
	cmd.AddCommand(newAttachmentsListCmd())
	cmd.AddCommand(newAttachmentsDownloadCmd())
	return cmd
}

func newAttachmentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <message-id>",
		Short: "List attachments of a message",
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

			atts := mimeparse.Parse(raw).Attachments()
			if len(atts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No attachments found.")
				return nil
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "INDEX\tNAME\tTYPE\tSIZE")
			for i, a := range atts {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%d\n", i, a.FileName, a.ContentType, a.Size)
			}
			return writer.Flush()
		},
	}
	return cmd
}

func newAttachmentsDownloadCmd() *cobra.Command {
	var outputDir string
	var index int

	cmd := &cobra.Command{
		Use:   "download <message-id>",
		Short: "Download attachments from a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				outputDir = "."
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			raw, err := s.reader.GetMessageMime(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			msg := mimeparse.Parse(raw)
			atts := msg.Attachments()
			if len(atts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No attachments found.")
				return nil
			}

			for i, a := range atts {
				if index >= 0 && i != index {
					continue
				}
				path := filepath.Join(outputDir, attachmentFileName(a.FileName, i))
				if err := msg.SaveAttachment(i, path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			if index >= len(atts) {
				return fmt.Errorf("%w: %d of %d", mimeparse.ErrAttachmentIndex, index, len(atts))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", ".", "Output directory")
	cmd.Flags().IntVar(&index, "index", -1, "Only download the attachment at this index")

	return cmd
}

// attachmentFileName keeps only the base name so a crafted filename cannot
// escape the output directory.
func attachmentFileName(name string, index int) string {
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "attachment-" + strconv.Itoa(index)
	}
	return base
}
