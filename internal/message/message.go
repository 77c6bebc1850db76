// Package message is an in-memory mail model with the familiar shape of
// desktop mail libraries: address lists, a body entity tree and headers.
// It is what callers build before sending and what fetched MIME is loaded
// into.
package message

import (
	"fmt"
	"io"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"graphmail/internal/mimeparse"
)

type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

type Priority string

const (
	PriorityNonUrgent Priority = "non-urgent"
	PriorityNormal    Priority = "normal"
	PriorityUrgent    Priority = "urgent"
)

type Header struct {
	Name  string
	Value string
}

type Message struct {
	From       AddressList
	Sender     *Address
	ReplyTo    AddressList
	To         AddressList
	Cc         AddressList
	Bcc        AddressList
	Subject    string
	Date       time.Time
	MessageID  string
	InReplyTo  string
	References []string
	Headers    []Header
	Importance Importance
	Priority   Priority
	Body       Entity
}

// NewMessage returns an empty message stamped with the current time and a
// unique Message-ID.
func NewMessage() *Message {
	return &Message{
		Date:      time.Now(),
		MessageID: GenerateMessageID("graphmail.local"),
	}
}

// GenerateMessageID returns a random id of the form <uuid>@<domain>, without
// angle brackets.
func GenerateMessageID(domain string) string {
	if domain == "" {
		domain = "graphmail.local"
	}
	return uuid.NewString() + "@" + domain
}

// Header returns the first extra header with the given name.
func (m *Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// SetHeader replaces every extra header with the given name.
func (m *Message) SetHeader(name, value string) {
	kept := m.Headers[:0]
	for _, h := range m.Headers {
		if !strings.EqualFold(h.Name, name) {
			kept = append(kept, h)
		}
	}
	m.Headers = append(kept, Header{Name: name, Value: value})
}

// TextBody returns the first text/plain leaf of the body.
func (m *Message) TextBody() string {
	if tp := FindText(m.Body, "plain"); tp != nil {
		return tp.Text
	}
	return ""
}

// HTMLBody returns the first text/html leaf of the body.
func (m *Message) HTMLBody() string {
	if tp := FindText(m.Body, "html"); tp != nil {
		return tp.Text
	}
	return ""
}

// Attachments returns the non-inline attachments.
func (m *Message) Attachments() []*AttachmentPart {
	var out []*AttachmentPart
	for _, ap := range Attachments(m.Body) {
		if !ap.Inline {
			out = append(out, ap)
		}
	}
	return out
}

// LinkedResources returns the inline attachments.
func (m *Message) LinkedResources() []*AttachmentPart {
	var out []*AttachmentPart
	for _, ap := range Attachments(m.Body) {
		if ap.Inline {
			out = append(out, ap)
		}
	}
	return out
}

// WriteTo serialises the message as RFC 5322 text.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	var h mail.Header
	h.Set("MIME-Version", "1.0")
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	if m.Subject != "" {
		h.SetSubject(m.Subject)
	}
	setAddresses(&h, "From", &m.From)
	if m.Sender != nil {
		h.SetAddressList("Sender", []*mail.Address{{Name: m.Sender.Name, Address: m.Sender.Address}})
	}
	setAddresses(&h, "Reply-To", &m.ReplyTo)
	setAddresses(&h, "To", &m.To)
	setAddresses(&h, "Cc", &m.Cc)
	if m.MessageID != "" {
		h.SetMessageID(strings.Trim(m.MessageID, "<>"))
	}
	if m.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{strings.Trim(m.InReplyTo, "<>")})
	}
	if len(m.References) > 0 {
		refs := make([]string, 0, len(m.References))
		for _, r := range m.References {
			refs = append(refs, strings.Trim(r, "<>"))
		}
		h.SetMsgIDList("References", refs)
	}
	if m.Importance != "" {
		h.Set("Importance", string(m.Importance))
	}
	if m.Priority != "" {
		h.Set("Priority", string(m.Priority))
	}
	for _, extra := range m.Headers {
		h.Add(extra.Name, extra.Value)
	}

	body := m.Body
	if body == nil {
		body = NewTextPart("plain", "")
	}

	cw := &countingWriter{w: w}
	create := func(header gomessage.Header) (*gomessage.Writer, error) {
		return gomessage.CreateWriter(cw, header)
	}
	if err := writeEntity(create, h.Header, body); err != nil {
		return cw.n, fmt.Errorf("write message: %w", err)
	}
	return cw.n, nil
}

func setAddresses(h *mail.Header, key string, list *AddressList) {
	if list.Len() == 0 {
		return
	}
	addrs := make([]*mail.Address, 0, list.Len())
	for _, a := range list.Mailboxes() {
		addrs = append(addrs, &mail.Address{Name: a.Name, Address: a.Address})
	}
	h.SetAddressList(key, addrs)
}

func writeEntity(create func(gomessage.Header) (*gomessage.Writer, error), h gomessage.Header, e Entity) error {
	switch p := e.(type) {
	case *TextPart:
		charset := p.Charset
		if charset == "" {
			charset = "utf-8"
		}
		h.SetContentType("text/"+p.Subtype, map[string]string{"charset": charset})
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := create(h)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, p.Text); err != nil {
			return err
		}
		return w.Close()

	case *AttachmentPart:
		mediaType := p.MediaType
		if mediaType == "" {
			mediaType = mediaTypeFor(p.FileName)
		}
		disposition := "attachment"
		if p.Inline {
			disposition = "inline"
		}
		h.SetContentType(mediaType, map[string]string{"name": p.FileName})
		h.SetContentDisposition(disposition, map[string]string{"filename": p.FileName})
		if p.ContentID != "" {
			h.Set("Content-ID", "<"+strings.Trim(p.ContentID, "<>")+">")
		}
		h.Set("Content-Transfer-Encoding", "base64")
		w, err := create(h)
		if err != nil {
			return err
		}
		if _, err := w.Write(p.Content); err != nil {
			return err
		}
		return w.Close()

	case *Multipart:
		h.SetContentType("multipart/"+p.Subtype, nil)
		w, err := create(h)
		if err != nil {
			return err
		}
		for _, child := range p.Parts {
			if err := writeEntity(w.CreatePart, gomessage.Header{}, child); err != nil {
				return err
			}
		}
		return w.Close()

	default:
		return fmt.Errorf("unsupported entity %T", e)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Load builds a message from raw MIME text. Like mimeparse, it never fails:
// unreadable addresses and attachments are skipped.
func Load(raw string) *Message {
	parsed := mimeparse.Parse(raw)
	m := &Message{
		Subject:   parsed.Subject(),
		Date:      parsed.Date(),
		MessageID: strings.Trim(parsed.MessageID(), "<>"),
		InReplyTo: strings.Trim(parsed.Header("In-Reply-To"), "<> "),
	}
	// Display names are decoded per address; decoding first would split
	// names that contain an encoded comma.
	loadAddresses(&m.From, parsed.RawHeader("From"))
	loadAddresses(&m.ReplyTo, parsed.RawHeader("Reply-To"))
	loadAddresses(&m.To, parsed.RawHeader("To"))
	loadAddresses(&m.Cc, parsed.RawHeader("Cc"))
	if s, ok := TryParseAddress(parsed.RawHeader("Sender")); ok {
		m.Sender = &s
	}
	for _, ref := range strings.Fields(parsed.Header("References")) {
		m.References = append(m.References, strings.Trim(ref, "<>"))
	}
	m.Importance = parseImportance(parsed.Header("Importance"))
	m.Priority = parsePriority(parsed.Header("Priority"), parsed.Header("X-Priority"))

	for _, kv := range parsed.Headers() {
		if strings.HasPrefix(strings.ToLower(kv[0]), "x-") {
			m.Headers = append(m.Headers, Header{Name: kv[0], Value: kv[1]})
		}
	}

	builder := BodyBuilder{TextBody: parsed.TextBody(), HTMLBody: parsed.HTMLBody()}
	for i, att := range parsed.Attachments() {
		content, err := parsed.AttachmentContent(i)
		if err != nil {
			continue
		}
		builder.Attachments = append(builder.Attachments, &AttachmentPart{
			FileName:  att.FileName,
			MediaType: att.ContentType,
			Content:   content,
			ContentID: att.ContentID,
		})
	}
	m.Body = builder.ToMessageBody()
	return m
}

func loadAddresses(list *AddressList, header string) {
	for _, item := range mimeparse.SplitAddressList(header) {
		if a, ok := TryParseAddress(item); ok {
			list.Add(a)
		}
	}
}

func parseImportance(v string) Importance {
	switch Importance(strings.ToLower(strings.TrimSpace(v))) {
	case ImportanceLow:
		return ImportanceLow
	case ImportanceHigh:
		return ImportanceHigh
	case ImportanceNormal:
		return ImportanceNormal
	}
	return ""
}

// parsePriority reads Priority, falling back to the numeric X-Priority
// (1-2 urgent, 4-5 non-urgent).
func parsePriority(priority, xPriority string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(priority))) {
	case PriorityUrgent:
		return PriorityUrgent
	case PriorityNonUrgent:
		return PriorityNonUrgent
	case PriorityNormal:
		return PriorityNormal
	}
	xPriority = strings.TrimSpace(xPriority)
	if xPriority == "" {
		return ""
	}
	switch xPriority[0] {
	case '1', '2':
		return PriorityUrgent
	case '4', '5':
		return PriorityNonUrgent
	case '3':
		return PriorityNormal
	}
	return ""
}
