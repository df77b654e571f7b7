package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// messageCursor points at the oldest message of the page already returned.
type messageCursor struct {
	ConversationID string `json:"conversation_id"`
	CreatedAt      int64  `json:"created_at"`
	ID             string `json:"id"`
}

func encodeMessageCursor(conversationID string, createdAt int64, id string) (string, error) {
	data, err := json.Marshal(messageCursor{ConversationID: conversationID, CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeMessageCursor(cursor, conversationID string) (*messageCursor, error) {
	data, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	var mc messageCursor
	if err := json.Unmarshal(data, &mc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if mc.ConversationID != conversationID {
		return nil, fmt.Errorf("%w: cursor belongs to another conversation", ErrInvalidCursor)
	}
	return &mc, nil
}
