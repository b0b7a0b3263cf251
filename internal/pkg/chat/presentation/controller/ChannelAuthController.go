package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relove-chat/internal/pkg/chat/application/usecase"
)

// ChannelAuthController signs private channel subscriptions for the
// websocket endpoint.
type ChannelAuthController struct {
	UC *usecase.AuthorizeChannelUseCase
}

func NewChannelAuthController(uc *usecase.AuthorizeChannelUseCase) *ChannelAuthController {
	return &ChannelAuthController{UC: uc}
}

// accepts JSON and form bodies
type channelAuthRequest struct {
	SocketID    string `json:"socket_id" form:"socket_id"`
	ChannelName string `json:"channel_name" form:"channel_name"`
}

func (h *ChannelAuthController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}

		var req channelAuthRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sig, err := h.UC.Execute(usecase.AuthorizeChannelInput{
			Identity: identity,
			SocketID: req.SocketID,
			Channel:  req.ChannelName,
		})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"auth": sig})
	}
}
