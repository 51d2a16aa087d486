// internal/middleware/token_middleware.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"otodealer-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireToken gates a route group behind one shared bearer token. The
// gateway webhook and the dashboard API each get their own token. An
// empty configured token rejects everything rather than opening the route.
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := extractToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			response.Unauthorized(c, "invalid or missing token")
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
