package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"relove-chat/internal/pkg/chat/application/usecase"
)

type MarkReadController struct {
	UC *usecase.MarkReadUseCase
}

func NewMarkReadController(uc *usecase.MarkReadUseCase) *MarkReadController {
	return &MarkReadController{UC: uc}
}

func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := requireIdentity(c)
		if !ok {
			return
		}
		conversationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := h.UC.Execute(ctx, usecase.MarkReadInput{Viewer: viewer, ConversationID: conversationID}); err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
