package http

import (
	"github.com/gin-gonic/gin"

	qport "jobboard/internal/infrastructure/queue/port"
	"jobboard/internal/infrastructure/realtime"
	"jobboard/internal/pkg/chat/application/usecase"
	"jobboard/internal/pkg/chat/presentation/controller"
)

// Dependencies are the collaborators the chat routes are built from.
// Queue is optional.
type Dependencies struct {
	Registry      *realtime.Registry
	StartChat     *usecase.StartChatUseCase
	AppendMessage *usecase.AppendMessageUseCase
	History       *usecase.GetChatHistoryUseCase
	Queue         qport.Client
	Socket        controller.SocketOptions
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, deps Dependencies) {
	socketCtl := controller.NewChatSocketController(deps.Registry, deps.StartChat, deps.AppendMessage, deps.Socket)
	historyCtl := controller.NewGetChatHistoryController(deps.History)
	sendMsgCtl := controller.NewSendMessageController(deps.AppendMessage, deps.Queue)

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())

	authed := g.Group("/chat", controller.RequireCaller())

	// GET /api/v1/chat/history/:userId -> caller's conversation with a peer
	authed.GET("/history/:userId", historyCtl.Handle())

	// POST /api/v1/chat/:chatId/messages -> send a message into a chat
	authed.POST("/:chatId/messages", sendMsgCtl.Handle())
}
