package repository

import (
	"context"

	chat "jobboard/internal/pkg/chat/application/domain"
)

// ChatRepository persists conversations and their append-only message logs.
//
// Lookups return (nil, nil) when nothing matches. At most one conversation
// exists per unordered participant pair; CreateConversation reports
// chat.ErrConversationExists when it loses that race.
type ChatRepository interface {
	// FindConversation matches the pair in either order.
	FindConversation(ctx context.Context, a, b string) (*chat.Conversation, error)
	FindConversationByID(ctx context.Context, id string) (*chat.Conversation, error)
	CreateConversation(ctx context.Context, senderID, receiverID string, first chat.Message) (*chat.Conversation, error)
	// AppendMessage returns chat.ErrConversationNotFound for an unknown id.
	AppendMessage(ctx context.Context, conversationID string, m chat.Message) (*chat.Conversation, error)
}
