package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"relove-chat/internal/pkg/chat/application/usecase"
)

// StartConversationController lets a buyer open a conversation about a
// product with its seller.
type StartConversationController struct {
	UC   *usecase.StartConversationUseCase
	Sent prometheus.Counter
}

func NewStartConversationController(uc *usecase.StartConversationUseCase, sent prometheus.Counter) *StartConversationController {
	return &StartConversationController{UC: uc, Sent: sent}
}

type startConversationRequest struct {
	SellerID   int64  `json:"seller_id" binding:"required"`
	ProductID  int64  `json:"product_id" binding:"required"`
	Message    string `json:"message"`
	Product    string `json:"product"`
	SellerName string `json:"seller_name"`
	BuyerName  string `json:"buyer_name"`
}

func (h *StartConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		buyer, ok := requireIdentity(c)
		if !ok {
			return
		}

		var req startConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.StartConversationInput{
			Buyer:      buyer,
			SellerID:   req.SellerID,
			ProductID:  req.ProductID,
			Body:       req.Message,
			Product:    req.Product,
			SellerName: req.SellerName,
			BuyerName:  req.BuyerName,
		})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		if h.Sent != nil {
			h.Sent.Inc()
		}

		status := http.StatusOK
		if out.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"success":         true,
			"conversation_id": out.Conversation.ID,
			"message":         "Conversation started successfully",
		})
	}
}
