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

// StartChatInput carries a first-contact attempt from sender to receiver.
type StartChatInput struct {
	SenderID   string
	ReceiverID string
	Message    string
}

// StartChatUseCase opens (or continues) the conversation between an
// owner/HR sender and a regular receiver, then notifies both rooms.
type StartChatUseCase struct {
	Directory Directory
	Repo      repository.ChatRepository
	Notifier  Notifier
	Now       func() time.Time
}

func NewStartChatUseCase(dir Directory, repo repository.ChatRepository, n Notifier) *StartChatUseCase {
	return &StartChatUseCase{Directory: dir, Repo: repo, Notifier: n, Now: time.Now}
}

// Execute authorizes the pair, then appends to the pair's conversation,
// creating it seeded with this message when none exists. Nothing is
// notified unless the store confirmed the write.
func (uc *StartChatUseCase) Execute(ctx context.Context, in StartChatInput) (*PostedMessage, error) {
	receiverID := strings.TrimSpace(in.ReceiverID)
	if receiverID == "" {
		return nil, chat.ErrMissingIdentity
	}
	msg, err := chat.NewMessage(in.SenderID, in.Message, clock(uc.Now))
	if err != nil {
		return nil, err
	}
	senderID := msg.SenderID

	if err := uc.authorize(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	conv, err := uc.Repo.FindConversation(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conv == nil {
		conv, err = uc.Repo.CreateConversation(ctx, senderID, receiverID, msg)
		if errors.Is(err, chat.ErrConversationExists) {
			// Lost the first-contact race: the winner's conversation is ours too.
			conv, err = uc.appendToPair(ctx, senderID, receiverID, msg)
		}
	} else {
		conv, err = uc.Repo.AppendMessage(ctx, conv.ID, msg)
	}
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.Notifier.Notify(ctx, chat.NewMessageEvent{ConversationID: conv.ID, Message: msg}, conv.Participants()...)
	return &PostedMessage{Conversation: conv, Message: msg}, nil
}

func (uc *StartChatUseCase) authorize(ctx context.Context, senderID, receiverID string) error {
	sender, err := uc.Directory.Role(ctx, senderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !sender.IsOwnerOrHR() {
		return chat.ErrUnauthorized
	}
	receiver, err := uc.Directory.Role(ctx, receiverID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !receiver.IsRegular() {
		return chat.ErrUnauthorized
	}
	return nil
}

func (uc *StartChatUseCase) appendToPair(ctx context.Context, a, b string, msg chat.Message) (*chat.Conversation, error) {
	conv, err := uc.Repo.FindConversation(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation for %s/%s reported as existing but not found", ErrPersistence, a, b)
	}
	return uc.Repo.AppendMessage(ctx, conv.ID, msg)
}
