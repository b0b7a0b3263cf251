package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"relove-chat/internal/pkg/chat/application/usecase"
	chat "relove-chat/internal/pkg/chat/domain"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint)
type SendMessageController struct {
	UC   *usecase.SendMessageUseCase
	Sent prometheus.Counter
}

func NewSendMessageController(uc *usecase.SendMessageUseCase, sent prometheus.Counter) *SendMessageController {
	return &SendMessageController{UC: uc, Sent: sent}
}

// sendMessageRequest is the DTO for the HTTP request body. Browser clients
// send tempId as a number, so it is read raw.
type sendMessageRequest struct {
	Message        string          `json:"message"`
	ConversationID int64           `json:"conversation_id" binding:"required"`
	SenderType     string          `json:"sender_type"`
	TempID         json.RawMessage `json:"tempId"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sender, ok := requireIdentity(c)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.SenderType != "" && chat.Role(strings.ToLower(req.SenderType)) != sender.Role {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		tempID := rawTempID(req.TempID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			Sender:         sender,
			ConversationID: req.ConversationID,
			Body:           req.Message,
			TempID:         tempID,
		})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		if h.Sent != nil {
			h.Sent.Inc()
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": msg,
			"tempId":  tempID,
		})
	}
}

func rawTempID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}
