// Package mimeparse pulls the useful pieces out of raw RFC 5322 messages:
// headers, the plain and HTML bodies and attachment metadata.
//
// Parsing is forgiving. Parse never fails; anything missing or
// malformed comes back empty. Multipart bodies are split on their boundary
// and nested multiparts are followed a few levels deep. Only SaveAttachment and
// AttachmentContent report decoding errors.
package mimeparse

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"regexp"
	"strings"
	"time"
)

// maxNesting bounds how many multipart levels below the top are followed.
// mixed > alternative > related is the deepest common shape.
const maxNesting = 3

var (
	ErrAttachmentIndex = errors.New("attachment index out of range")

	boundaryPattern     = regexp.MustCompile(`(?i)boundary\s*=\s*(?:"([^"]*)"|([^;\s]+))`)
	filenamePattern     = regexp.MustCompile(`(?i)filename\*?\s*=\s*(?:"([^"]*)"|([^;\s]+))`)
	namePattern         = regexp.MustCompile(`(?i)(?:^|[;\s])name\*?\s*=\s*(?:"([^"]*)"|([^;\s]+))`)
	charsetPattern      = regexp.MustCompile(`(?i)charset\s*=\s*(?:"([^"]*)"|([^;\s]+))`)
	angleAddressPattern = regexp.MustCompile(`<([^<>]*)>`)
	bareAddressPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-']+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

type field struct {
	name  string
	value string
}

type headerBlock []field

func (h headerBlock) get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.name, name) {
			return f.value
		}
	}
	return ""
}

// byPrefix returns the first header whose name starts with prefix.
func (h headerBlock) byPrefix(prefix string) string {
	prefix = strings.ToLower(prefix)
	for _, f := range h {
		if strings.HasPrefix(strings.ToLower(f.name), prefix) {
			return f.value
		}
	}
	return ""
}

// Part is one leaf of the message body, still in its transfer encoding.
type Part struct {
	ContentType      string
	TransferEncoding string
	Disposition      string
	ContentID        string
	Body             string
}

// MediaType is the lowercased type/subtype, without parameters.
func (p Part) MediaType() string {
	mt, _, _ := strings.Cut(p.ContentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func (p Part) Charset() string {
	return paramValue(charsetPattern, p.ContentType)
}

func (p Part) IsAttachment() bool {
	return strings.Contains(strings.ToLower(p.Disposition), "attachment")
}

// FileName reads filename= from the disposition, falling back to name= in
// the content type.
func (p Part) FileName() string {
	if v := paramValue(filenamePattern, p.Disposition); v != "" {
		return DecodeHeader(v)
	}
	if v := paramValue(filenamePattern, p.ContentType); v != "" {
		return DecodeHeader(v)
	}
	return DecodeHeader(paramValue(namePattern, p.ContentType))
}

// Text decodes the body leniently and converts it to UTF-8.
func (p Part) Text() string {
	return toUTF8(p.Charset(), decodeBodyLenient(p.Body, p.TransferEncoding))
}

type Attachment struct {
	FileName    string
	ContentType string
	ContentID   string
	Size        int
}

type Message struct {
	raw     string
	headers headerBlock
	parts   []Part
}

// Parse splits raw into headers and parts.
func Parse(raw string) *Message {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	headerText, body := splitHeaderBody(text)
	headers := parseHeaders(headerText)

	m := &Message{raw: raw, headers: headers}

	contentType := headers.get("Content-Type")
	boundary := paramValue(boundaryPattern, contentType)
	if boundary == "" {
		boundary = paramValue(boundaryPattern, headerText)
	}
	if boundary == "" {
		m.parts = []Part{{
			ContentType:      contentType,
			TransferEncoding: headers.get("Content-Transfer-Encoding"),
			Disposition:      headers.get("Content-Disposition"),
			ContentID:        strings.Trim(headers.get("Content-ID"), "<> "),
			Body:             body,
		}}
		return m
	}

	m.parts = collectParts(body, boundary, 0)
	return m
}

// collectParts flattens a multipart body into its leaves. Below maxNesting a
// multipart is kept as a single opaque part.
func collectParts(body, boundary string, depth int) []Part {
	var parts []Part
	for _, chunk := range splitParts(body, boundary) {
		part := parsePart(chunk)
		if nested := nestedBoundary(part); nested != "" && depth < maxNesting {
			parts = append(parts, collectParts(part.Body, nested, depth+1)...)
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

func splitHeaderBody(text string) (string, string) {
	if strings.HasPrefix(text, "\n") {
		return "", text[1:]
	}
	if i := strings.Index(text, "\n\n"); i >= 0 {
		return text[:i], text[i+2:]
	}
	return text, ""
}

func parseHeaders(text string) headerBlock {
	var h headerBlock
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(h) > 0 {
			h[len(h)-1].value += " " + strings.TrimLeft(line, " \t")
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h = append(h, field{name: strings.TrimSpace(name), value: strings.TrimSpace(value)})
	}
	for i := range h {
		h[i].value = strings.TrimSpace(h[i].value)
	}
	return h
}

// splitParts returns the chunks between delimiter lines, ignoring the
// preamble and stopping at the closing delimiter.
func splitParts(body, boundary string) []string {
	open := "--" + boundary
	closing := open + "--"

	var (
		parts   []string
		current []string
		inPart  bool
	)
	flush := func() {
		if inPart {
			parts = append(parts, strings.Join(current, "\n"))
		}
		current = nil
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimRight(line, " \t\r")
		switch trimmed {
		case closing:
			flush()
			return parts
		case open:
			flush()
			inPart = true
			continue
		}
		if inPart {
			current = append(current, line)
		}
	}
	flush()
	return parts
}

func parsePart(chunk string) Part {
	headerText, body := splitHeaderBody(chunk)
	headers := parseHeaders(headerText)
	return Part{
		ContentType:      headers.byPrefix("Content-Type"),
		TransferEncoding: headers.byPrefix("Content-Transfer-Encoding"),
		Disposition:      headers.byPrefix("Content-Disposition"),
		ContentID:        strings.Trim(headers.get("Content-ID"), "<> "),
		Body:             strings.TrimRight(body, "\n"),
	}
}

func nestedBoundary(p Part) string {
	if !strings.HasPrefix(p.MediaType(), "multipart/") {
		return ""
	}
	return paramValue(boundaryPattern, p.ContentType)
}

func paramValue(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// Raw returns the message text as given to Parse.
func (m *Message) Raw() string { return m.raw }

// Header returns the decoded value of the first header named name.
func (m *Message) Header(name string) string {
	return DecodeHeader(m.headers.get(name))
}

// Headers returns all headers in order, decoded.
func (m *Message) Headers() [][2]string {
	out := make([][2]string, 0, len(m.headers))
	for _, f := range m.headers {
		out = append(out, [2]string{f.name, DecodeHeader(f.value)})
	}
	return out
}

// RawHeader returns the first header named name without RFC 2047 decoding.
// Address headers must be split before their display names are decoded.
func (m *Message) RawHeader(name string) string {
	return m.headers.get(name)
}

func (m *Message) Subject() string   { return m.Header("Subject") }
func (m *Message) MessageID() string { return strings.TrimSpace(m.headers.get("Message-ID")) }

// From returns the sender's email address.
func (m *Message) From() string {
	return ExtractAddress(m.firstAddress("From"))
}

// FromName returns the sender's decoded display name, if any.
func (m *Message) FromName() string {
	return DecodeHeader(ExtractName(m.firstAddress("From")))
}

func (m *Message) firstAddress(name string) string {
	items := SplitAddressList(m.RawHeader(name))
	if len(items) == 0 {
		return ""
	}
	return items[0]
}

func (m *Message) To() []string { return addressesOf(m.RawHeader("To")) }
func (m *Message) Cc() []string { return addressesOf(m.RawHeader("Cc")) }

// Date parses the Date header; the zero time means missing or unparsable.
func (m *Message) Date() time.Time {
	v := m.headers.get("Date")
	if v == "" {
		return time.Time{}
	}
	t, err := mail.ParseDate(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Parts returns the leaf parts in message order.
func (m *Message) Parts() []Part {
	return append([]Part(nil), m.parts...)
}

func (m *Message) TextBody() string { return m.firstBody("text/plain") }
func (m *Message) HTMLBody() string { return m.firstBody("text/html") }

func (m *Message) firstBody(mediaType string) string {
	for _, p := range m.parts {
		if p.IsAttachment() {
			continue
		}
		mt := p.MediaType()
		if mt == "" && len(m.parts) == 1 {
			mt = "text/plain"
		}
		if mt == mediaType {
			return p.Text()
		}
	}
	return ""
}

func (m *Message) attachmentParts() []Part {
	var out []Part
	for _, p := range m.parts {
		if p.IsAttachment() {
			out = append(out, p)
		}
	}
	return out
}

func (m *Message) Attachments() []Attachment {
	parts := m.attachmentParts()
	out := make([]Attachment, 0, len(parts))
	for _, p := range parts {
		out = append(out, Attachment{
			FileName:    p.FileName(),
			ContentType: p.MediaType(),
			ContentID:   p.ContentID,
			Size:        len(decodeBodyLenient(p.Body, p.TransferEncoding)),
		})
	}
	return out
}

func (m *Message) AttachmentCount() int {
	return len(m.attachmentParts())
}

// AttachmentContent strictly decodes the attachment at index.
func (m *Message) AttachmentContent(index int) ([]byte, error) {
	parts := m.attachmentParts()
	if index < 0 || index >= len(parts) {
		return nil, fmt.Errorf("%w: %d of %d", ErrAttachmentIndex, index, len(parts))
	}
	return decodeBodyStrict(parts[index].Body, parts[index].TransferEncoding)
}

// SaveAttachment writes the decoded attachment at index to path.
func (m *Message) SaveAttachment(index int, path string) error {
	data, err := m.AttachmentContent(index)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return nil
}
