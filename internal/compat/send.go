package compat

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"graphmail/internal/config"
	"graphmail/internal/graph"
	"graphmail/internal/message"
)

// SendClient mirrors an SMTP client: Connect, Authenticate, Send,
// Disconnect. Connect only records the endpoint; nothing is dialled.
type SendClient struct {
	tokens graph.TokenProvider
	opts   []graph.Option
	logger logrus.FieldLogger

	mu       sync.Mutex
	host     string
	port     int
	identity Identity
	secret   string
	authed   bool
}

func NewSendClient(tokens graph.TokenProvider, logger logrus.FieldLogger, opts ...graph.Option) *SendClient {
	if logger == nil {
		logger = discardLogger()
	}
	return &SendClient{tokens: tokens, opts: opts, logger: logger}
}

// Connect records host and port for callers that inspect them later.
func (c *SendClient) Connect(host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host, c.port = host, port
	return nil
}

// Endpoint returns what Connect recorded.
func (c *SendClient) Endpoint() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host, c.port
}

// Authenticate parses the identity and checks the credentials by acquiring a
// token.
func (c *SendClient) Authenticate(ctx context.Context, identity, secret string) error {
	id, err := ParseIdentity(identity)
	if err != nil {
		return err
	}
	if _, err := c.tokens.GetAccessToken(ctx, id.ClientID, id.TenantID, secret); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	c.mu.Lock()
	c.identity, c.secret, c.authed = id, secret, true
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"tenant": id.TenantID, "client": id.ClientID}).Debug("send client authenticated")
	return nil
}

func (c *SendClient) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

// Send posts msg through the sender mailbox: the identity's sender, else the
// message's first From address.
func (c *SendClient) Send(ctx context.Context, msg *message.Message) error {
	c.mu.Lock()
	id, secret, authed := c.identity, c.secret, c.authed
	c.mu.Unlock()
	if !authed {
		return ErrNotInitialized
	}

	from := id.Sender
	if from == "" && msg.From.Len() > 0 {
		from = msg.From.Mailboxes()[0].Address
	}
	if from == "" {
		return fmt.Errorf("%w: no sender address in identity or message", config.ErrConfiguration)
	}

	client, err := graph.NewClient(c.tokens, graph.Credentials{
		TenantID:     id.TenantID,
		ClientID:     id.ClientID,
		ClientSecret: secret,
	}, from, c.opts...)
	if err != nil {
		return err
	}

	out := ToOutgoing(msg)
	out.From = from
	return graph.NewSender(client).SendMessage(ctx, out)
}

// Disconnect forgets the credentials. The client can authenticate again.
func (c *SendClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity, c.secret, c.authed = Identity{}, "", false
	return nil
}

// ToOutgoing converts a message into a Graph send request. The body is the
// HTML part if there is one, else the plain part, else the first text leaf.
func ToOutgoing(msg *message.Message) graph.OutgoingMessage {
	out := graph.OutgoingMessage{
		To:         emailAddresses(&msg.To),
		Cc:         emailAddresses(&msg.Cc),
		Bcc:        emailAddresses(&msg.Bcc),
		ReplyTo:    emailAddresses(&msg.ReplyTo),
		Subject:    msg.Subject,
		Importance: importanceOf(msg),
	}

	switch {
	case message.FindText(msg.Body, "html") != nil:
		out.Body, out.IsHTML = message.FindText(msg.Body, "html").Text, true
	case message.FindText(msg.Body, "plain") != nil:
		out.Body = message.FindText(msg.Body, "plain").Text
	default:
		if tp := message.FindText(msg.Body, ""); tp != nil {
			out.Body = tp.Text
		}
	}

	for _, ap := range message.Attachments(msg.Body) {
		out.Attachments = append(out.Attachments, graph.Attachment{
			Name:        ap.FileName,
			ContentType: ap.MediaType,
			Content:     ap.Content,
			Inline:      ap.Inline,
			ContentID:   ap.ContentID,
		})
	}

	for _, h := range msg.Headers {
		out.Headers = append(out.Headers, graph.Header{Name: h.Name, Value: h.Value})
	}
	return out
}

func emailAddresses(list *message.AddressList) []graph.EmailAddress {
	boxes := list.Mailboxes()
	out := make([]graph.EmailAddress, 0, len(boxes))
	for _, a := range boxes {
		out = append(out, graph.EmailAddress{Name: a.Name, Address: a.Address})
	}
	return out
}

func importanceOf(msg *message.Message) string {
	if msg.Importance != "" {
		return string(msg.Importance)
	}
	switch msg.Priority {
	case message.PriorityUrgent:
		return string(message.ImportanceHigh)
	case message.PriorityNonUrgent:
		return string(message.ImportanceLow)
	case message.PriorityNormal:
		return string(message.ImportanceNormal)
	}
	return ""
}
