package message

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BodyBuilder assembles the usual body shapes from plain and HTML text,
// attachments and HTML-linked resources.
type BodyBuilder struct {
	TextBody        string
	HTMLBody        string
	Attachments     []*AttachmentPart
	LinkedResources []*AttachmentPart
}

// AddAttachmentFile reads path and appends it as a regular attachment.
func (b *BodyBuilder) AddAttachmentFile(path string) (*AttachmentPart, error) {
	part, err := attachmentFromFile(path)
	if err != nil {
		return nil, err
	}
	b.Attachments = append(b.Attachments, part)
	return part, nil
}

// AddLinkedResourceFile reads path and appends it as an inline resource with
// a fresh content id.
func (b *BodyBuilder) AddLinkedResourceFile(path string) (*AttachmentPart, error) {
	part, err := attachmentFromFile(path)
	if err != nil {
		return nil, err
	}
	part.Inline = true
	part.ContentID = uuid.NewString()
	b.LinkedResources = append(b.LinkedResources, part)
	return part, nil
}

// ToMessageBody builds:
//
//	html only            text/html
//	text only            text/plain
//	text and html        alternative(plain, html)
//	html with resources  related(html, resources...)
//	any with attachments mixed(body, attachments...)
func (b *BodyBuilder) ToMessageBody() Entity {
	var html Entity
	if b.HTMLBody != "" {
		html = NewTextPart("html", b.HTMLBody)
		if len(b.LinkedResources) > 0 {
			related := NewMultipart("related", html)
			for _, res := range b.LinkedResources {
				res.Inline = true
				related.Parts = append(related.Parts, res)
			}
			html = related
		}
	}

	var body Entity
	switch {
	case b.TextBody != "" && html != nil:
		body = NewMultipart("alternative", NewTextPart("plain", b.TextBody), html)
	case html != nil:
		body = html
	default:
		body = NewTextPart("plain", b.TextBody)
	}

	if len(b.Attachments) == 0 {
		return body
	}
	mixed := NewMultipart("mixed", body)
	for _, att := range b.Attachments {
		mixed.Parts = append(mixed.Parts, att)
	}
	return mixed
}

func attachmentFromFile(path string) (*AttachmentPart, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	name := filepath.Base(path)
	return &AttachmentPart{
		FileName:  name,
		MediaType: mediaTypeFor(name),
		Content:   content,
	}, nil
}

func mediaTypeFor(name string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			mt, _, _ := strings.Cut(t, ";")
			return mt
		}
	}
	return "application/octet-stream"
}
