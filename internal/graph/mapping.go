package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// Responses are decoded into generic maps and read field by field, so a
// missing or mistyped property falls back to its zero value instead of
// failing the whole page.

func decodeObject(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

func values(obj map[string]any) []map[string]any {
	items, _ := obj["value"].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func mapFolders(obj map[string]any) []Folder {
	items := values(obj)
	folders := make([]Folder, 0, len(items))
	for _, item := range items {
		folders = append(folders, Folder{
			ID:               str(item, "id"),
			DisplayName:      str(item, "displayName"),
			ParentFolderID:   str(item, "parentFolderId"),
			ChildFolderCount: integer(item, "childFolderCount"),
			UnreadItemCount:  integer(item, "unreadItemCount"),
			TotalItemCount:   integer(item, "totalItemCount"),
		})
	}
	return folders
}

func mapMessages(obj map[string]any) []Message {
	items := values(obj)
	messages := make([]Message, 0, len(items))
	for _, item := range items {
		messages = append(messages, mapMessage(item))
	}
	return messages
}

func mapMessage(item map[string]any) Message {
	body := object(item, "body")
	return Message{
		ID:          str(item, "id"),
		Subject:     str(item, "subject"),
		BodyPreview: str(item, "bodyPreview"),
		Body: Body{
			ContentType: str(body, "contentType"),
			Content:     str(body, "content"),
		},
		Sender:               recipient(object(item, "sender")),
		From:                 recipient(object(item, "from")),
		ToRecipients:         recipients(item, "toRecipients"),
		CcRecipients:         recipients(item, "ccRecipients"),
		BccRecipients:        recipients(item, "bccRecipients"),
		ReplyTo:              recipients(item, "replyTo"),
		IsRead:               boolean(item, "isRead"),
		IsDraft:              boolean(item, "isDraft"),
		Importance:           str(item, "importance"),
		ReceivedDateTime:     timestamp(item, "receivedDateTime"),
		SentDateTime:         timestamp(item, "sentDateTime"),
		CreatedDateTime:      timestamp(item, "createdDateTime"),
		LastModifiedDateTime: timestamp(item, "lastModifiedDateTime"),
		HasAttachments:       boolean(item, "hasAttachments"),
		InternetMessageID:    str(item, "internetMessageId"),
		ConversationID:       str(item, "conversationId"),
		ParentFolderID:       str(item, "parentFolderId"),
		WebLink:              str(item, "webLink"),
	}
}

// recipient reads the {"emailAddress": {"name", "address"}} shape.
func recipient(obj map[string]any) EmailAddress {
	addr := object(obj, "emailAddress")
	return EmailAddress{
		Name:    str(addr, "name"),
		Address: str(addr, "address"),
	}
}

func recipients(obj map[string]any, key string) []EmailAddress {
	items, _ := obj[key].([]any)
	out := make([]EmailAddress, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, recipient(m))
	}
	return out
}

func object(obj map[string]any, key string) map[string]any {
	m, _ := obj[key].(map[string]any)
	return m
}

func str(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func boolean(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func integer(obj map[string]any, key string) int {
	n, _ := obj[key].(float64)
	return int(n)
}

func timestamp(obj map[string]any, key string) time.Time {
	s := str(obj, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
