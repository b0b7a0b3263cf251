package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relove-chat/internal/pkg/chat/application/usecase"
)

// GetMessagesController returns a conversation's history as a bare array,
// oldest first.
type GetMessagesController struct {
	UC *usecase.GetMessagesUseCase
}

func NewGetMessagesController(uc *usecase.GetMessagesUseCase) *GetMessagesController {
	return &GetMessagesController{UC: uc}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := requireIdentity(c)
		if !ok {
			return
		}
		conversationID, ok := pathID(c, "conversationId")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.GetMessagesInput{Viewer: viewer, ConversationID: conversationID})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}
