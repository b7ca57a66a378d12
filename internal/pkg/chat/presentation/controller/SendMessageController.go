package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	queueport "jobboard/internal/infrastructure/queue/port"
	chat "jobboard/internal/pkg/chat/application/domain"
	"jobboard/internal/pkg/chat/application/task"
	"jobboard/internal/pkg/chat/application/usecase"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint).
// With a queue client the append runs on a worker; without one it runs inline.
type SendMessageController struct {
	Q  queueport.Client
	uc *usecase.AppendMessageUseCase
}

func NewSendMessageController(uc *usecase.AppendMessageUseCase, client queueport.Client) *SendMessageController {
	return &SendMessageController{Q: client, uc: uc}
}

// sendMessageBody is the DTO for the HTTP request body
type sendMessageBody struct {
	Message string `json:"message" binding:"required"`
}

// Handle returns a gin handler that appends the caller's message to :chatId
func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		var req sendMessageBody
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		senderID := CallerID(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if h.Q == nil {
			h.appendInline(ctx, c, chatID, senderID, req.Message)
			return
		}

		// The worker drops tasks for blank bodies and unknown chats without
		// retrying, so those are rejected here while the client is listening.
		err := h.uc.Validate(ctx, usecase.AppendMessageInput{
			ConversationID: chatID,
			SenderID:       senderID,
			Message:        req.Message,
		})
		if err != nil {
			writeAppendError(c, chatID, err)
			return
		}

		t, err := task.NewAppendMessageTask(task.AppendMessageTaskPayload{
			ChatID:   chatID,
			SenderID: senderID,
			Message:  req.Message,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode task payload"})
			return
		}

		// Enqueue task; best-effort options
		opts := queueport.EnqueueOption{Queue: task.AppendMessageQueue, MaxRetry: 20}
		id, err := h.Q.Enqueue(ctx, t, opts)
		if err != nil {
			slog.Warn("enqueue chat message failed", "chatId", chatID, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue message"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":   "queued",
			"task_id":  id,
			"chatId":   chatID,
			"senderId": senderID,
		})
	}
}

func (h *SendMessageController) appendInline(ctx context.Context, c *gin.Context, chatID, senderID, body string) {
	posted, err := h.uc.Execute(ctx, usecase.AppendMessageInput{
		ConversationID: chatID,
		SenderID:       senderID,
		Message:        body,
	})
	if err != nil {
		writeAppendError(c, chatID, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent",
		"data": gin.H{
			"chatId":  posted.Conversation.ID,
			"message": posted.Message,
		},
	})
}

func writeAppendError(c *gin.Context, chatID string, err error) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMissingIdentity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("append chat message failed", "chatId", chatID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
	}
}
