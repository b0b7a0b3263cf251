package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	chat "relove-chat/internal/pkg/chat/domain"
)

const identityKey = "chat.identity"

// RequireIdentity rejects requests without a valid bearer token. The token
// may also travel in the "token" query parameter, which is the only option
// for browser websocket handshakes.
func RequireIdentity(key []byte, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}

		identity, err := ParseToken(key, token)
		if err != nil {
			log.Debug("rejected token",
				zap.String("path", c.FullPath()),
				zap.String("remote", c.ClientIP()),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity attached by RequireIdentity.
func IdentityFrom(c *gin.Context) (chat.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return chat.Identity{}, false
	}
	id, ok := v.(chat.Identity)
	return id, ok
}

// WithIdentity attaches identity to c. Tests use it to skip token handling.
func WithIdentity(c *gin.Context, identity chat.Identity) {
	c.Set(identityKey, identity)
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
