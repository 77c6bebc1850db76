package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is used when ListMessages is called without a positive
// count.
const DefaultPageSize = 25

// Reader exposes the mailbox read operations. Each call resolves a token and
// issues exactly one request.
type Reader struct {
	client *Client
}

func NewReader(client *Client) *Reader {
	return &Reader{client: client}
}

func (r *Reader) ListFolders(ctx context.Context) ([]Folder, error) {
	data, err := r.client.do(ctx, http.MethodGet, r.client.path("mailFolders"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return mapFolders(obj), nil
}

// GetFolder finds a folder by display name, ignoring case.
func (r *Reader) GetFolder(ctx context.Context, name string) (Folder, error) {
	folders, err := r.ListFolders(ctx)
	if err != nil {
		return Folder{}, err
	}
	name = strings.TrimSpace(name)
	for _, f := range folders {
		if strings.EqualFold(f.DisplayName, name) {
			return f, nil
		}
	}
	return Folder{}, fmt.Errorf("%w: %q", ErrFolderNotFound, name)
}

func (r *Reader) GetInbox(ctx context.Context) (Folder, error) {
	return r.GetFolder(ctx, "Inbox")
}

func (r *Reader) ListMessages(ctx context.Context, folderID string, maxCount int) ([]Message, error) {
	if maxCount <= 0 {
		maxCount = DefaultPageSize
	}
	query := url.Values{}
	query.Set("$top", strconv.Itoa(maxCount))

	data, err := r.client.do(ctx, http.MethodGet, r.client.path("mailFolders", folderID, "messages"), query, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return mapMessages(obj), nil
}

// GetMessageMime returns the message as raw RFC 5322 text.
func (r *Reader) GetMessageMime(ctx context.Context, messageID string) (string, error) {
	data, err := r.client.do(ctx, http.MethodGet, r.client.path("messages", messageID, "$value"), nil, nil)
	if err != nil {
		return "", fmt.Errorf("get message mime: %w", err)
	}
	return string(data), nil
}

func (r *Reader) GetMessage(ctx context.Context, messageID string) (Message, error) {
	data, err := r.client.do(ctx, http.MethodGet, r.client.path("messages", messageID), nil, nil)
	if err != nil {
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	obj, err := decodeObject(data)
	if err != nil {
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	// Reuse the list mapper by wrapping the single object.
	messages := mapMessages(map[string]any{"value": []any{obj}})
	return messages[0], nil
}

// SearchMessages runs a $search query across the mailbox, or within one
// folder when folderID is set.
func (r *Reader) SearchMessages(ctx context.Context, query, folderID string) ([]Message, error) {
	path := r.client.path("messages")
	if folderID != "" {
		path = r.client.path("mailFolders", folderID, "messages")
	}
	params := url.Values{}
	params.Set("$search", strconv.Quote(query))

	data, err := r.client.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return mapMessages(obj), nil
}

func (r *Reader) MarkAsRead(ctx context.Context, messageID string) error {
	return r.setRead(ctx, messageID, true)
}

func (r *Reader) MarkAsUnread(ctx context.Context, messageID string) error {
	return r.setRead(ctx, messageID, false)
}

func (r *Reader) setRead(ctx context.Context, messageID string, read bool) error {
	payload := map[string]bool{"isRead": read}
	if _, err := r.client.do(ctx, http.MethodPatch, r.client.path("messages", messageID), nil, payload); err != nil {
		return fmt.Errorf("update read state: %w", err)
	}
	return nil
}

// MoveMessage moves a message and returns its id in the destination folder.
func (r *Reader) MoveMessage(ctx context.Context, messageID, destinationFolderID string) (string, error) {
	payload := map[string]string{"destinationId": destinationFolderID}
	data, err := r.client.do(ctx, http.MethodPost, r.client.path("messages", messageID, "move"), nil, payload)
	if err != nil {
		return "", fmt.Errorf("move message: %w", err)
	}
	var moved struct {
		ID string `json:"id"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &moved); err != nil {
			return "", fmt.Errorf("move message: decode response: %w", err)
		}
	}
	return moved.ID, nil
}

func (r *Reader) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := r.client.do(ctx, http.MethodDelete, r.client.path("messages", messageID), nil, nil); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
