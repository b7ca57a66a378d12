package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobboard/internal/infrastructure/config"
	qport "jobboard/internal/infrastructure/queue/port"
	"jobboard/internal/pkg/chat/application/usecase"
)

// AppendMessageTaskType is the queue task name for appending a message to an existing chat.
const AppendMessageTaskType = "chat:append_message"

// AppendMessageQueue is the queue the task is enqueued on; config refuses
// worker queue sets that leave it out.
const AppendMessageQueue = config.ChatQueue

// AppendMessageTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type AppendMessageTaskPayload struct {
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
}

// NewAppendMessageTask encodes p as a queue task.
func NewAppendMessageTask(p AppendMessageTaskPayload) (qport.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: AppendMessageTaskType, Payload: b}, nil
}

// RegisterAppendMessageTask binds the task handler to the provided server.
func RegisterAppendMessageTask(srv qport.Server, uc *usecase.AppendMessageUseCase) {
	srv.Register(AppendMessageTaskType, AppendMessageHandler(uc))
}

// AppendMessageHandler runs the append flow for one task. Only persistence
// failures are retried; a bad payload or a missing chat never succeeds.
func AppendMessageHandler(uc *usecase.AppendMessageUseCase) qport.Handler {
	return func(ctx context.Context, t qport.Task) error {
		var p AppendMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: decode payload: %v", qport.ErrSkipRetry, err)
		}

		// give DB a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.AppendMessageInput{
			ConversationID: p.ChatID,
			SenderID:       p.SenderID,
			Message:        p.Message,
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, usecase.ErrPersistence):
			return err
		default:
			return fmt.Errorf("%w: %v", qport.ErrSkipRetry, err)
		}
	}
}
