package chat

import (
	"strings"
	"time"
)

// Message is one append-only entry of a conversation log.
type Message struct {
	SenderID  string    `json:"senderId"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewMessage validates author and body and stamps the message with now.
// The body is trimmed; a blank body is rejected.
func NewMessage(senderID, body string, now time.Time) (Message, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return Message{}, ErrMissingIdentity
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Message{SenderID: senderID, Body: body, CreatedAt: now.UTC()}, nil
}

// NewMessageEvent is raised after a message has been durably appended.
type NewMessageEvent struct {
	ConversationID string
	Message        Message
}
