package usecase

import (
	"context"
	"time"

	chat "jobboard/internal/pkg/chat/application/domain"
	identity "jobboard/internal/pkg/identity/application/domain"
)

// Directory resolves a user's role; satisfied by the identity ResolveRoleUseCase.
type Directory interface {
	Role(ctx context.Context, userID string) (identity.Role, error)
}

// Notifier pushes a persisted message to the rooms of recipients.
// Delivery is best effort and never reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, ev chat.NewMessageEvent, recipients ...string)
}

// PostedMessage is the outcome of a successful append.
type PostedMessage struct {
	Conversation *chat.Conversation
	Message      chat.Message
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
