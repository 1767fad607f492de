// api/middleware/auth_middleware.go
package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workspace/config"
	"github.com/Annany2002/nebula-workspace/internal/auth"
	"github.com/Annany2002/nebula-workspace/internal/logger"
)

// UserIDKey is the gin context key holding the authenticated user's id.
const UserIDKey = "userId"

// AuthMiddleware creates a gin middleware for checking JWT authentication.
// It depends on the application configuration for the JWT secret.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context(), customLog)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			_ = c.Error(fmt.Errorf("%w: authorization header required", auth.ErrUnauthorized))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			_ = c.Error(fmt.Errorf("%w: authorization header format must be Bearer {token}", auth.ErrTokenMalformed))
			c.Abort()
			return
		}

		userID, err := auth.ValidateJWT(strings.TrimSpace(parts[1]), cfg.JWTSecret)
		if err != nil {
			log.Warnf("AuthMiddleware: Token validation failed: %v", err)
			_ = c.Error(err)
			c.Abort()
			return
		}

		log.Debugf("AuthMiddleware: Token validated for UserID: %s", userID)
		c.Set(UserIDKey, userID)
		c.Next()
	}
}
