package middlewares

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

// APIKeyMiddleware guards the internal endpoints with a shared bearer key.
// An empty key disables the check.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid authorization header format")
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(apiKey)) != 1 {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid API key")
			return
		}
		c.Next()
	}
}
