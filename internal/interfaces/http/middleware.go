package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perkwise/backoffice/internal/auth"
)

const identityKey = "identity"

// identityMiddleware resolves the caller from the gateway-injected headers.
// A missing user id or an unknown role rejects the request; the gateway owns
// authentication, this service only trusts its result.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-Id")
		role := auth.Role(c.GetHeader("X-User-Role"))

		if userID == "" || !role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid identity headers",
			})
			return
		}

		c.Set(identityKey, auth.Identity{UserID: userID, Role: role})
		c.Next()
	}
}

func callerIdentity(c *gin.Context) auth.Identity {
	id, _ := c.MustGet(identityKey).(auth.Identity)
	return id
}
