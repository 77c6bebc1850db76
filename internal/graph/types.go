package graph

import "time"

type Folder struct {
	ID               string
	DisplayName      string
	ParentFolderID   string
	ChildFolderCount int
	UnreadItemCount  int
	TotalItemCount   int
}

type EmailAddress struct {
	Name    string
	Address string
}

// String renders the address as `Name <address>`, or the bare address when
// there is no display name.
func (a EmailAddress) String() string {
	if a.Name == "" {
		return a.Address
	}
	if a.Address == "" {
		return a.Name
	}
	return a.Name + " <" + a.Address + ">"
}

type Body struct {
	ContentType string
	Content     string
}

// Message is a server-side message as returned by the messages endpoints.
// Fields missing from the response stay at their zero value.
type Message struct {
	ID                   string
	Subject              string
	BodyPreview          string
	Body                 Body
	Sender               EmailAddress
	From                 EmailAddress
	ToRecipients         []EmailAddress
	CcRecipients         []EmailAddress
	BccRecipients        []EmailAddress
	ReplyTo              []EmailAddress
	IsRead               bool
	IsDraft              bool
	Importance           string
	ReceivedDateTime     time.Time
	SentDateTime         time.Time
	CreatedDateTime      time.Time
	LastModifiedDateTime time.Time
	HasAttachments       bool
	InternetMessageID    string
	ConversationID       string
	ParentFolderID       string
	WebLink              string
}
