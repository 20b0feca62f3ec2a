package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prajyotgorlewar/BattleIDE/internal/jwt"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"go.uber.org/zap"
)

const authIDKey = "authId"

// BearerAuth rejects requests without a valid "Authorization: Bearer" token
// and stores the token's user id on the context.
func BearerAuth(manager *jwt.JWTManager, log *zap.Logger) gin.HandlerFunc {
	log = logger.OrNop(log).Named("auth")
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			WriteJSONError(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := manager.ValidateToken(token)
		if err != nil {
			log.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			WriteJSONError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(authIDKey, claims.UserID)
		c.Next()
	}
}

// AuthID returns the user id stored by BearerAuth.
func AuthID(c *gin.Context) string {
	return c.GetString(authIDKey)
}
