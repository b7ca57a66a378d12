package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "jobboard/internal/pkg/chat/application/domain"
	repository "jobboard/internal/pkg/chat/persistence/repository/port"
)

// GetChatHistoryInput names the two sides of the conversation to fetch.
type GetChatHistoryInput struct {
	UserID string
	PeerID string
}

// GetChatHistoryUseCase returns the conversation between a user and a peer.
type GetChatHistoryUseCase struct {
	Repo repository.ChatRepository
}

func NewGetChatHistoryUseCase(repo repository.ChatRepository) *GetChatHistoryUseCase {
	return &GetChatHistoryUseCase{Repo: repo}
}

// Execute returns (nil, nil) when the pair has never talked.
func (uc *GetChatHistoryUseCase) Execute(ctx context.Context, in GetChatHistoryInput) (*chat.Conversation, error) {
	userID, peerID := strings.TrimSpace(in.UserID), strings.TrimSpace(in.PeerID)
	if userID == "" || peerID == "" {
		return nil, chat.ErrMissingIdentity
	}
	conv, err := uc.Repo.FindConversation(ctx, userID, peerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return conv, nil
}
