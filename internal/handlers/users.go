package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/repo"
	"github.com/prajyotgorlewar/BattleIDE/internal/service"
	"go.uber.org/zap"
)

type UsersHandler struct {
	users *service.UserService
	log   *zap.Logger
}

func NewUsersHandler(users *service.UserService, log *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, log: logger.OrNop(log).Named("http.users")}
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *gin.Context) {
	authID := AuthID(c)
	user, err := h.users.Me(c.Request.Context(), authID)
	switch {
	case errors.Is(err, repo.ErrUserNotFound):
		WriteJSONError(c, http.StatusNotFound, "User not found")
		return
	case err != nil:
		h.log.Error("profile lookup failed", zap.String("userId", authID), zap.String("requestId", RequestID(c)), zap.Error(err))
		WriteJSONError(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Leaderboard handles GET /api/users/leaderboard?limit=N.
func (h *UsersHandler) Leaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteJSONError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.users.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("leaderboard failed", zap.String("requestId", RequestID(c)), zap.Error(err))
		WriteJSONError(c, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
