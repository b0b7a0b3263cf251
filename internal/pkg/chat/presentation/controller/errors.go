package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"relove-chat/internal/pkg/chat/application/usecase"
	chat "relove-chat/internal/pkg/chat/domain"
)

// writeUseCaseError maps use case and domain errors to HTTP responses.
func writeUseCaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected persistence error"})
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrBuyerOnly),
		errors.Is(err, usecase.ErrChannelNotOwned):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, chat.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrMissingParticipants),
		errors.Is(err, chat.ErrInvalidChannel),
		errors.Is(err, usecase.ErrInvalidSocket):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
