package compat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"graphmail/internal/config"
	"graphmail/internal/graph"
	"graphmail/internal/message"
)

// FetchedMessage pairs a loaded message with its Graph id and read state.
type FetchedMessage struct {
	ID      string
	IsRead  bool
	Message *message.Message
}

// StoreClient mirrors a mailbox store: authenticate, open folders, fetch
// messages and update them.
type StoreClient struct {
	tokens graph.TokenProvider
	opts   []graph.Option
	logger logrus.FieldLogger

	mu     sync.Mutex
	reader *graph.Reader
}

func NewStoreClient(tokens graph.TokenProvider, logger logrus.FieldLogger, opts ...graph.Option) *StoreClient {
	if logger == nil {
		logger = discardLogger()
	}
	return &StoreClient{tokens: tokens, opts: opts, logger: logger}
}

// Authenticate binds the client to a mailbox. An empty mailbox falls back to
// the identity's sender.
func (s *StoreClient) Authenticate(ctx context.Context, identity, secret, mailbox string) error {
	id, err := ParseIdentity(identity)
	if err != nil {
		return err
	}
	mailbox = strings.TrimSpace(mailbox)
	if mailbox == "" {
		mailbox = id.Sender
	}
	if mailbox == "" {
		return fmt.Errorf("%w: mailbox is required", config.ErrConfiguration)
	}
	if _, err := s.tokens.GetAccessToken(ctx, id.ClientID, id.TenantID, secret); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	client, err := graph.NewClient(s.tokens, graph.Credentials{
		TenantID:     id.TenantID,
		ClientID:     id.ClientID,
		ClientSecret: secret,
	}, mailbox, s.opts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.reader = graph.NewReader(client)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"mailbox": mailbox, "client": id.ClientID}).Debug("store client authenticated")
	return nil
}

func (s *StoreClient) current() (*graph.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader == nil {
		return nil, ErrNotInitialized
	}
	return s.reader, nil
}

func (s *StoreClient) Folders(ctx context.Context) ([]graph.Folder, error) {
	r, err := s.current()
	if err != nil {
		return nil, err
	}
	return r.ListFolders(ctx)
}

func (s *StoreClient) Inbox(ctx context.Context) (graph.Folder, error) {
	r, err := s.current()
	if err != nil {
		return graph.Folder{}, err
	}
	return r.GetInbox(ctx)
}

func (s *StoreClient) Folder(ctx context.Context, name string) (graph.Folder, error) {
	r, err := s.current()
	if err != nil {
		return graph.Folder{}, err
	}
	return r.GetFolder(ctx, name)
}

// Fetch lists up to n messages in folderID and loads each from its raw
// MIME. A message whose MIME cannot be fetched fails the whole call.
func (s *StoreClient) Fetch(ctx context.Context, folderID string, n int) ([]FetchedMessage, error) {
	r, err := s.current()
	if err != nil {
		return nil, err
	}
	list, err := r.ListMessages(ctx, folderID, n)
	if err != nil {
		return nil, err
	}

	out := make([]FetchedMessage, 0, len(list))
	for _, item := range list {
		raw, err := r.GetMessageMime(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", item.ID, err)
		}
		out = append(out, FetchedMessage{
			ID:      item.ID,
			IsRead:  item.IsRead,
			Message: message.Load(raw),
		})
	}
	return out, nil
}

func (s *StoreClient) SetSeen(ctx context.Context, messageID string, seen bool) error {
	r, err := s.current()
	if err != nil {
		return err
	}
	if seen {
		return r.MarkAsRead(ctx, messageID)
	}
	return r.MarkAsUnread(ctx, messageID)
}

// Move returns the message's id in the destination folder.
func (s *StoreClient) Move(ctx context.Context, messageID, destinationFolderID string) (string, error) {
	r, err := s.current()
	if err != nil {
		return "", err
	}
	return r.MoveMessage(ctx, messageID, destinationFolderID)
}

func (s *StoreClient) Delete(ctx context.Context, messageID string) error {
	r, err := s.current()
	if err != nil {
		return err
	}
	return r.DeleteMessage(ctx, messageID)
}

func (s *StoreClient) Disconnect() error {
	s.mu.Lock()
	s.reader = nil
	s.mu.Unlock()
	return nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
