package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "jobboard/internal/pkg/chat/application/domain"
	"jobboard/internal/pkg/chat/application/usecase"
)

// GetChatHistoryController handles the chat-history endpoint only (one controller per endpoint)
type GetChatHistoryController struct {
	uc *usecase.GetChatHistoryUseCase
}

func NewGetChatHistoryController(uc *usecase.GetChatHistoryUseCase) *GetChatHistoryController {
	return &GetChatHistoryController{uc: uc}
}

// Handle returns the caller's conversation with the :userId peer.
func (h *GetChatHistoryController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		conv, err := h.uc.Execute(ctx, usecase.GetChatHistoryInput{
			UserID: CallerID(c),
			PeerID: c.Param("userId"),
		})
		switch {
		case errors.Is(err, chat.ErrMissingIdentity):
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		case err != nil:
			slog.Error("chat history lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat history"})
			return
		}

		if conv == nil {
			c.JSON(http.StatusOK, gin.H{"message": "No chat history found", "data": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Chat history retrieved successfully", "data": conv})
	}
}
