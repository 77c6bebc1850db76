package message

// Entity is a node of a message body: *TextPart, *Multipart or
// *AttachmentPart.
type Entity interface {
	entity()
}

// TextPart is a text/<Subtype> leaf, e.g. plain or html.
type TextPart struct {
	Subtype string
	Charset string
	Text    string
}

// Multipart is a multipart/<Subtype> container.
type Multipart struct {
	Subtype string
	Parts   []Entity
}

// AttachmentPart carries binary content. Inline parts with a ContentID are
// linked resources referenced from HTML as cid:<ContentID>.
type AttachmentPart struct {
	FileName  string
	MediaType string
	Content   []byte
	ContentID string
	Inline    bool
}

func (*TextPart) entity()       {}
func (*Multipart) entity()      {}
func (*AttachmentPart) entity() {}

func NewTextPart(subtype, text string) *TextPart {
	return &TextPart{Subtype: subtype, Charset: "utf-8", Text: text}
}

func NewMultipart(subtype string, parts ...Entity) *Multipart {
	return &Multipart{Subtype: subtype, Parts: parts}
}

// IsHTML reports whether the part is text/html.
func (p *TextPart) IsHTML() bool { return p.Subtype == "html" }

// Walk visits e and its descendants depth-first, parents before children.
func Walk(e Entity, visit func(Entity)) {
	if e == nil {
		return
	}
	visit(e)
	if mp, ok := e.(*Multipart); ok {
		for _, child := range mp.Parts {
			Walk(child, visit)
		}
	}
}

// FindText returns the first text leaf with the given subtype, or the first
// text leaf of any subtype when subtype is empty.
func FindText(e Entity, subtype string) *TextPart {
	switch v := e.(type) {
	case *TextPart:
		if subtype == "" || v.Subtype == subtype {
			return v
		}
	case *Multipart:
		for _, child := range v.Parts {
			if tp := FindText(child, subtype); tp != nil {
				return tp
			}
		}
	}
	return nil
}

// Attachments collects every attachment leaf, inline ones included.
func Attachments(e Entity) []*AttachmentPart {
	var out []*AttachmentPart
	Walk(e, func(n Entity) {
		if ap, ok := n.(*AttachmentPart); ok {
			out = append(out, ap)
		}
	})
	return out
}
