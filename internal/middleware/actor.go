package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/audit"
)

// Identity headers set by the authenticating gateway in front of the API.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// Gin context keys holding the caller identity.
const (
	CtxUserIDKey   = "userID"
	CtxUsernameKey = "username"
)

// Actor propagates the caller identity asserted by the gateway into the gin
// context and the request context, where audit entries and task messages
// pick it up. Requests without identity headers pass through anonymously.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		username := strings.TrimSpace(c.GetHeader(HeaderUserName))
		if userID == "" && username == "" {
			c.Next()
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Set(CtxUsernameKey, username)
		ctx := audit.WithActor(c.Request.Context(), audit.Actor{UserID: userID, Username: username})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
