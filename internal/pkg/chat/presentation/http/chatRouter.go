package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"relove-chat/internal/infrastructure/auth"
	"relove-chat/internal/infrastructure/metrics"
	"relove-chat/internal/infrastructure/realtime"
	"relove-chat/internal/pkg/chat/application/usecase"
	"relove-chat/internal/pkg/chat/presentation/controller"
)

// Dependencies are the collaborators the chat endpoints are built from.
type Dependencies struct {
	ListConversations *usecase.ListConversationsUseCase
	GetMessages       *usecase.GetMessagesUseCase
	SendMessage       *usecase.SendMessageUseCase
	MarkRead          *usecase.MarkReadUseCase
	StartConversation *usecase.StartConversationUseCase
	AuthorizeChannel  *usecase.AuthorizeChannelUseCase

	Router     *realtime.Router
	SigningKey []byte
	Limiter    *auth.LimiterPool
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d Dependencies) {
	listCtl := controller.NewListConversationsController(d.ListConversations)
	getMsgCtl := controller.NewGetMessagesController(d.GetMessages)
	sendMsgCtl := controller.NewSendMessageController(d.SendMessage, d.Metrics.MessagesSent)
	markReadCtl := controller.NewMarkReadController(d.MarkRead)
	startCtl := controller.NewStartConversationController(d.StartConversation, d.Metrics.MessagesSent)
	channelCtl := controller.NewChannelAuthController(d.AuthorizeChannel)
	socketCtl := controller.NewChatSocketController(d.Router, d.SigningKey, d.Log)

	authed := g.Group("", auth.RequireIdentity(d.SigningKey, d.Log))
	limited := authed.Group("", auth.RateLimit(d.Limiter, d.Metrics.RateLimited.Inc))

	// GET /api/v1/conversations -> caller's conversations, most recent first
	authed.GET("/conversations", listCtl.Handle())

	// GET /api/v1/messages/:conversationId -> history, oldest first
	authed.GET("/messages/:conversationId", getMsgCtl.Handle())

	// POST /api/v1/send-message -> persist and broadcast a message
	limited.POST("/send-message", sendMsgCtl.Handle())

	// POST /api/v1/conversations/:id/mark-read -> read receipt
	authed.POST("/conversations/:id/mark-read", markReadCtl.Handle())

	// POST /api/v1/start-conversation -> buyer contacts a seller
	limited.POST("/start-conversation", startCtl.Handle())

	// POST /api/v1/broadcasting/auth -> private channel signature
	authed.POST("/broadcasting/auth", channelCtl.Handle())

	// GET /api/v1/ws -> websocket endpoint for push events
	authed.GET("/ws", socketCtl.Handle())
}
