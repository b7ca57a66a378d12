package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	chat "jobboard/internal/pkg/chat/application/domain"
	repository "jobboard/internal/pkg/chat/persistence/repository/port"
)

// AppendMessageInput carries a message for an existing conversation.
type AppendMessageInput struct {
	ConversationID string
	SenderID       string
	Message        string
}

// AppendMessageUseCase appends to a conversation the caller already holds
// the id of. Authorization happened when the conversation was started, so
// it is not re-checked here.
type AppendMessageUseCase struct {
	Repo     repository.ChatRepository
	Notifier Notifier
	Now      func() time.Time
}

func NewAppendMessageUseCase(repo repository.ChatRepository, n Notifier) *AppendMessageUseCase {
	return &AppendMessageUseCase{Repo: repo, Notifier: n, Now: time.Now}
}

// Validate runs the checks Execute starts with, without writing: the body
// must be non-blank and the conversation must exist. Callers that defer the
// append to a worker use it to reject requests the worker would drop.
func (uc *AppendMessageUseCase) Validate(ctx context.Context, in AppendMessageInput) error {
	_, _, err := uc.prepare(ctx, in)
	return err
}

// Execute persists the message and notifies the conversation's stored
// sender and receiver, whoever the author is.
func (uc *AppendMessageUseCase) Execute(ctx context.Context, in AppendMessageInput) (*PostedMessage, error) {
	conv, msg, err := uc.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	conv, err = uc.Repo.AppendMessage(ctx, conv.ID, msg)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.Notifier.Notify(ctx, chat.NewMessageEvent{ConversationID: conv.ID, Message: msg}, conv.Participants()...)
	return &PostedMessage{Conversation: conv, Message: msg}, nil
}

func (uc *AppendMessageUseCase) prepare(ctx context.Context, in AppendMessageInput) (*chat.Conversation, chat.Message, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, chat.Message{}, chat.ErrConversationNotFound
	}
	msg, err := chat.NewMessage(in.SenderID, in.Message, clock(uc.Now))
	if err != nil {
		return nil, chat.Message{}, err
	}

	conv, err := uc.Repo.FindConversationByID(ctx, conversationID)
	if err != nil {
		return nil, chat.Message{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conv == nil {
		return nil, chat.Message{}, chat.ErrConversationNotFound
	}
	return conv, msg, nil
}
