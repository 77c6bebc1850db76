package graph

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"graphmail/internal/mimeparse"
)

const defaultAttachmentType = "application/octet-stream"

var errNoRecipients = errors.New("message has no recipients")

// OutgoingMessage is the sender-side view of a message. From may be empty,
// in which case the client's mailbox sends it.
type OutgoingMessage struct {
	From        string
	To          []EmailAddress
	Cc          []EmailAddress
	Bcc         []EmailAddress
	ReplyTo     []EmailAddress
	Subject     string
	Body        string
	IsHTML      bool
	Importance  string
	Attachments []Attachment
	Headers     []Header
}

type Header struct {
	Name  string
	Value string
}

type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
	Inline      bool
	ContentID   string
}

// AttachmentFromFile reads path into an attachment named after its base name.
// The content type is guessed from the extension.
func AttachmentFromFile(path string) (Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	name := filepath.Base(path)
	return Attachment{
		Name:        name,
		ContentType: ContentTypeFor(name),
		Content:     content,
	}, nil
}

// ContentTypeFor maps a file name to a media type, defaulting to
// application/octet-stream.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return defaultAttachmentType
	}
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return defaultAttachmentType
	}
	return ct
}

type Sender struct {
	client *Client
}

func NewSender(client *Client) *Sender {
	return &Sender{client: client}
}

// SendSimple sends a single-body message. to may hold several addresses
// separated by commas or semicolons.
func (s *Sender) SendSimple(ctx context.Context, from, to, subject, body string, isHTML bool) error {
	return s.SendMessage(ctx, OutgoingMessage{
		From:    from,
		To:      SplitAddresses(to),
		Subject: subject,
		Body:    body,
		IsHTML:  isHTML,
	})
}

func (s *Sender) SendWithAttachment(ctx context.Context, from, to, subject, body string, isHTML bool, paths ...string) error {
	msg := OutgoingMessage{
		From:    from,
		To:      SplitAddresses(to),
		Subject: subject,
		Body:    body,
		IsHTML:  isHTML,
	}
	for _, p := range paths {
		att, err := AttachmentFromFile(p)
		if err != nil {
			return err
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	return s.SendMessage(ctx, msg)
}

// SendMessage posts msg to users/{from}/sendMail and keeps a copy in Sent
// Items.
func (s *Sender) SendMessage(ctx context.Context, msg OutgoingMessage) error {
	payload := buildSendMail(msg)
	m := payload.Message
	if len(m.ToRecipients)+len(m.CcRecipients)+len(m.BccRecipients) == 0 {
		return fmt.Errorf("send message: %w", errNoRecipients)
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = s.client.mailbox
	}

	if _, err := s.client.do(ctx, http.MethodPost, userPath(from, "sendMail"), nil, payload); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

type sendMailRequest struct {
	Message         outgoingPayload `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type outgoingPayload struct {
	Subject                string              `json:"subject"`
	Body                   bodyPayload         `json:"body"`
	ToRecipients           []recipientPayload  `json:"toRecipients"`
	CcRecipients           []recipientPayload  `json:"ccRecipients"`
	BccRecipients          []recipientPayload  `json:"bccRecipients"`
	ReplyTo                []recipientPayload  `json:"replyTo,omitempty"`
	Importance             string              `json:"importance,omitempty"`
	Attachments            []attachmentPayload `json:"attachments,omitempty"`
	InternetMessageHeaders []headerPayload     `json:"internetMessageHeaders,omitempty"`
}

type bodyPayload struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipientPayload struct {
	EmailAddress addressPayload `json:"emailAddress"`
}

type addressPayload struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type attachmentPayload struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	IsInline     bool   `json:"isInline,omitempty"`
	ContentID    string `json:"contentId,omitempty"`
}

type headerPayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func buildSendMail(msg OutgoingMessage) sendMailRequest {
	contentType := "Text"
	if msg.IsHTML {
		contentType = "HTML"
	}

	out := outgoingPayload{
		Subject:       msg.Subject,
		Body:          bodyPayload{ContentType: contentType, Content: msg.Body},
		ToRecipients:  toRecipients(msg.To),
		CcRecipients:  toRecipients(msg.Cc),
		BccRecipients: toRecipients(msg.Bcc),
		Importance:    normalizeImportance(msg.Importance),
	}
	if len(msg.ReplyTo) > 0 {
		out.ReplyTo = toRecipients(msg.ReplyTo)
	}

	for _, att := range msg.Attachments {
		ct := att.ContentType
		if ct == "" {
			ct = ContentTypeFor(att.Name)
		}
		out.Attachments = append(out.Attachments, attachmentPayload{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Name,
			ContentType:  ct,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
			IsInline:     att.Inline,
			ContentID:    att.ContentID,
		})
	}

	// Graph only accepts custom headers on send.
	for _, h := range msg.Headers {
		if !strings.HasPrefix(strings.ToLower(h.Name), "x-") {
			continue
		}
		out.InternetMessageHeaders = append(out.InternetMessageHeaders, headerPayload{Name: h.Name, Value: h.Value})
	}

	return sendMailRequest{Message: out, SaveToSentItems: true}
}

func toRecipients(addrs []EmailAddress) []recipientPayload {
	out := make([]recipientPayload, 0, len(addrs))
	for _, a := range addrs {
		if strings.TrimSpace(a.Address) == "" {
			continue
		}
		out = append(out, recipientPayload{EmailAddress: addressPayload{Name: a.Name, Address: strings.TrimSpace(a.Address)}})
	}
	return out
}

func normalizeImportance(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "low":
		return "low"
	case "normal":
		return "normal"
	case "high":
		return "high"
	default:
		return ""
	}
}

// SplitAddresses accepts "Name <addr>" or bare addresses separated by commas
// or semicolons.
func SplitAddresses(list string) []EmailAddress {
	items := mimeparse.SplitAddressList(strings.ReplaceAll(list, ";", ","))
	out := make([]EmailAddress, 0, len(items))
	for _, item := range items {
		out = append(out, EmailAddress{
			Name:    mimeparse.ExtractName(item),
			Address: mimeparse.ExtractAddress(item),
		})
	}
	return out
}
