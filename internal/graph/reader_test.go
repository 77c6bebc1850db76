package graph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foldersJSON = `{
  "value": [
    {"id": "inbox-id", "displayName": "Inbox", "parentFolderId": "root", "childFolderCount": 1, "unreadItemCount": 3, "totalItemCount": 10},
    {"id": "archive-id", "displayName": "Archive", "totalItemCount": "many"},
    {"id": "sent-id", "displayName": "Sent Items"}
  ]
}`

const messagesJSON = `{
  "value": [
    {
      "id": "m1",
      "subject": "Quarterly report",
      "bodyPreview": "Numbers attached",
      "body": {"contentType": "html", "content": "<p>Numbers attached</p>"},
      "from": {"emailAddress": {"name": "Alice", "address": "alice@contoso.com"}},
      "sender": {"emailAddress": {"address": "alice@contoso.com"}},
      "toRecipients": [
        {"emailAddress": {"name": "Bob", "address": "bob@contoso.com"}},
        {"emailAddress": {"address": "carol@contoso.com"}}
      ],
      "isRead": true,
      "hasAttachments": true,
      "importance": "high",
      "receivedDateTime": "2024-03-01T09:30:00Z",
      "internetMessageId": "<abc@contoso.com>"
    },
    {
      "id": "m2",
      "subject": "Lunch?",
      "isRead": false,
      "from": "not-an-object",
      "ccRecipients": [42]
    }
  ]
}`

func TestListFolders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/shared@contoso.com/mailFolders", r.URL.Path)
		_, _ = w.Write([]byte(foldersJSON))
	})

	folders, err := NewReader(c).ListFolders(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 3)

	assert.Equal(t, Folder{
		ID: "inbox-id", DisplayName: "Inbox", ParentFolderID: "root",
		ChildFolderCount: 1, UnreadItemCount: 3, TotalItemCount: 10,
	}, folders[0])
	// Mistyped count falls back to zero.
	assert.Equal(t, 0, folders[1].TotalItemCount)
}

func TestGetFolderIsCaseInsensitive(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(foldersJSON))
	})
	reader := NewReader(c)

	folder, err := reader.GetFolder(context.Background(), "sent items")
	require.NoError(t, err)
	assert.Equal(t, "sent-id", folder.ID)

	inbox, err := reader.GetInbox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "inbox-id", inbox.ID)

	_, err = reader.GetFolder(context.Background(), "Junk Email")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestListMessages(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/shared@contoso.com/mailFolders/inbox-id/messages", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("$top"))
		_, _ = w.Write([]byte(messagesJSON))
	})

	messages, err := NewReader(c).ListMessages(context.Background(), "inbox-id", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	unread := 0
	for _, m := range messages {
		if !m.IsRead {
			unread++
		}
	}
	assert.Equal(t, 1, unread)

	first := messages[0]
	assert.Equal(t, "Quarterly report", first.Subject)
	assert.Equal(t, EmailAddress{Name: "Alice", Address: "alice@contoso.com"}, first.From)
	assert.Equal(t, "alice@contoso.com", first.Sender.Address)
	assert.Equal(t, []EmailAddress{
		{Name: "Bob", Address: "bob@contoso.com"},
		{Address: "carol@contoso.com"},
	}, first.ToRecipients)
	assert.Equal(t, "html", first.Body.ContentType)
	assert.True(t, first.HasAttachments)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), first.ReceivedDateTime)

	second := messages[1]
	assert.Equal(t, EmailAddress{}, second.From)
	assert.Empty(t, second.CcRecipients)
	assert.True(t, second.ReceivedDateTime.IsZero())
}

func TestListMessagesDefaultsPageSize(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "25", r.URL.Query().Get("$top"))
		_, _ = w.Write([]byte(`{}`))
	})

	messages, err := NewReader(c).ListMessages(context.Background(), "inbox-id", 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestGetMessageAndMime(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/shared@contoso.com/messages/m1":
			_, _ = w.Write([]byte(`{"id":"m1","subject":"Hello","isRead":true}`))
		case "/users/shared@contoso.com/messages/m1/$value":
			_, _ = w.Write([]byte("Subject: Hello\r\n\r\nBody"))
		default:
			http.NotFound(w, r)
		}
	})
	reader := NewReader(c)

	msg, err := reader.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", msg.Subject)
	assert.True(t, msg.IsRead)

	raw, err := reader.GetMessageMime(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Subject: Hello\r\n\r\nBody", raw)

	_, err = reader.GetMessage(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestSearchMessages(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, `"budget 2024"`, r.URL.Query().Get("$search"))
		_, _ = w.Write([]byte(`{"value":[{"id":"m9"}]}`))
	})
	reader := NewReader(c)

	found, err := reader.SearchMessages(context.Background(), "budget 2024", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "m9", found[0].ID)

	_, err = reader.SearchMessages(context.Background(), "budget 2024", "inbox-id")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/users/shared@contoso.com/messages",
		"/users/shared@contoso.com/mailFolders/inbox-id/messages",
	}, paths)
}

func TestMarkReadAndUnread(t *testing.T) {
	var bodies []map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/users/shared@contoso.com/messages/m1", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	})
	reader := NewReader(c)

	require.NoError(t, reader.MarkAsRead(context.Background(), "m1"))
	require.NoError(t, reader.MarkAsUnread(context.Background(), "m1"))

	assert.Equal(t, []map[string]any{{"isRead": true}, {"isRead": false}}, bodies)
}

func TestMoveMessageReturnsNewID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/shared@contoso.com/messages/m1/move", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"destinationId":"archive-id"}`, string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"m1-moved","parentFolderId":"archive-id"}`))
	})

	newID, err := NewReader(c).MoveMessage(context.Background(), "m1", "archive-id")
	require.NoError(t, err)
	assert.Equal(t, "m1-moved", newID)
}

func TestDeleteMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path != "/users/shared@contoso.com/messages/m1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	reader := NewReader(c)

	require.NoError(t, reader.DeleteMessage(context.Background(), "m1"))
	assert.ErrorIs(t, reader.DeleteMessage(context.Background(), "m2"), ErrNotFound)
}
