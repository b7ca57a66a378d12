package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"jobboard/internal/infrastructure/observability"
	"jobboard/internal/infrastructure/realtime"
	chat "jobboard/internal/pkg/chat/application/domain"
	"jobboard/internal/pkg/chat/application/usecase"
	"jobboard/internal/pkg/chat/notification"
)

const defaultReadTimeout = 60 * time.Second

// SocketOptions tunes the websocket endpoint. Zero values pick defaults.
type SocketOptions struct {
	HandlerTimeout time.Duration
	EventRate      float64
	EventBurst     int
	Metrics        *observability.ChatMetrics
}

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
type ChatSocketController struct {
	registry        *realtime.Registry
	startChatUC     *usecase.StartChatUseCase
	appendMessageUC *usecase.AppendMessageUseCase
	metrics         *observability.ChatMetrics
	inflightTimeout time.Duration
	eventRate       rate.Limit
	eventBurst      int
}

func NewChatSocketController(registry *realtime.Registry, start *usecase.StartChatUseCase, appendMsg *usecase.AppendMessageUseCase, opts SocketOptions) *ChatSocketController {
	ctl := &ChatSocketController{
		registry:        registry,
		startChatUC:     start,
		appendMessageUC: appendMsg,
		metrics:         opts.Metrics,
		inflightTimeout: opts.HandlerTimeout,
		eventRate:       rate.Limit(opts.EventRate),
		eventBurst:      opts.EventBurst,
	}
	if ctl.inflightTimeout <= 0 {
		ctl.inflightTimeout = 5 * time.Second
	}
	if ctl.eventRate <= 0 {
		ctl.eventRate = 20
	}
	if ctl.eventBurst <= 0 {
		ctl.eventBurst = 40
	}
	return ctl
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers connect from the job-board frontends on other origins.
		return true
	},
}

// Handle upgrades HTTP connections to websocket and processes events until the client disconnects.
// Events from one connection are handled one at a time, in arrival order.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			return
		}

		conn := realtime.NewConnection(ws)
		ctl.registry.Attach(conn)
		conn.Start()
		ctl.metrics.ConnectionOpened()
		defer func() {
			rooms := ctl.registry.Identities(conn)
			ctl.registry.Detach(conn)
			slog.Debug("chat socket closed", "connection", conn.ID, "rooms", rooms)
			conn.Close(websocket.CloseNormalClosure, "session closed")
			ctl.metrics.ConnectionClosed()
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(conn, notification.EventConnected, connectedData{ConnectionID: conn.ID})

		limiter := rate.NewLimiter(ctl.eventRate, ctl.eventBurst)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					slog.Debug("chat socket read ended", "connection", conn.ID, "error", err)
				}
				return
			}

			if !limiter.Allow() {
				ctl.replyError(conn, codeRateLimited, msgRateLimited)
				continue
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, codeBadRequest, errBadPayload.Error())
				continue
			}
			ctl.dispatch(conn, frame)
		}
	}
}

func (ctl *ChatSocketController) dispatch(conn *realtime.Connection, frame inboundFrame) {
	switch frame.Event {
	case eventJoin:
		ctl.metrics.RecordEvent(eventJoin)
		ctl.handleJoin(conn, frame)
	case eventStartChat:
		ctl.metrics.RecordEvent(eventStartChat)
		ctl.handleStartChat(conn, frame)
	case eventSendMessage:
		ctl.metrics.RecordEvent(eventSendMessage)
		ctl.handleSendMessage(conn, frame)
	default:
		ctl.metrics.RecordEvent("unknown")
		ctl.replyError(conn, codeBadRequest, "unknown event")
	}
}

func (ctl *ChatSocketController) handleJoin(conn *realtime.Connection, frame inboundFrame) {
	var req joinRequest
	if err := decodeEvent(frame.Data, &req); err != nil {
		ctl.replyError(conn, codeBadRequest, err.Error())
		return
	}
	// Rooms are keyed by the same trimmed ids the store records.
	userID := strings.TrimSpace(req.UserID)
	if !ctl.registry.Join(userID, conn) {
		ctl.replyError(conn, codeBadRequest, "cannot join room")
		return
	}
	ctl.reply(conn, notification.EventJoined, joinedData{UserID: userID})
}

func (ctl *ChatSocketController) handleStartChat(conn *realtime.Connection, frame inboundFrame) {
	var req startChatRequest
	if err := decodeEvent(frame.Data, &req); err != nil {
		ctl.replyError(conn, codeBadRequest, err.Error())
		return
	}

	ctx, cancel := ctl.eventContext()
	defer cancel()

	_, err := ctl.startChatUC.Execute(ctx, usecase.StartChatInput{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Message:    req.Message,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, eventStartChat, err)
	}
}

func (ctl *ChatSocketController) handleSendMessage(conn *realtime.Connection, frame inboundFrame) {
	var req sendMessageRequest
	if err := decodeEvent(frame.Data, &req); err != nil {
		ctl.replyError(conn, codeBadRequest, err.Error())
		return
	}

	ctx, cancel := ctl.eventContext()
	defer cancel()

	_, err := ctl.appendMessageUC.Execute(ctx, usecase.AppendMessageInput{
		ConversationID: req.ChatID,
		SenderID:       req.SenderID,
		Message:        req.Message,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, eventSendMessage, err)
	}
}

// eventContext is detached from the connection: a client hanging up does
// not abort a write that is already in flight.
func (ctl *ChatSocketController) eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), ctl.inflightTimeout)
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, event string, err error) {
	switch {
	case errors.Is(err, chat.ErrUnauthorized):
		ctl.replyError(conn, codeUnauthorized, msgUnauthorized)
	case errors.Is(err, chat.ErrConversationNotFound):
		ctl.replyError(conn, codeNotFound, msgNotFound)
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMissingIdentity):
		ctl.replyError(conn, codeBadRequest, err.Error())
	default:
		slog.Error("chat event failed", "event", event, "connection", conn.ID, "error", err)
		ctl.replyError(conn, codeInternal, msgInternal)
	}
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, event string, data any) {
	payload, err := notification.Encode(event, data)
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}

// replyError sends a chatError to the originating connection only.
func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	ctl.metrics.RecordError(code)
	payload, err := notification.EncodeChatError(message, code)
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}
