package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relove-chat/internal/infrastructure/auth"
	chat "relove-chat/internal/pkg/chat/domain"
)

// requireIdentity returns the authenticated caller or writes 401.
func requireIdentity(c *gin.Context) (chat.Identity, bool) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return chat.Identity{}, false
	}
	return id, true
}

// pathID parses a positive int64 path parameter or writes 400.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}
