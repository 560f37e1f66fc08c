package handlers

import (
	"net/http"
	"strconv"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/http/middleware"
	"stickman_shake/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ranked(c *gin.Context) ([]service.LeaderboardEntry, bool) {
	list, err := h.Profiles.List(c.Request.Context())
	if err != nil {
		writeError(c, domain.ErrBackendUnavailable)
		return nil, false
	}
	return service.Rank(list), true
}

// GetLeaderboard returns the ranked players (top 100 by default)
func (h *Handler) GetLeaderboard(c *gin.Context) {
	entries, ok := h.ranked(c)
	if !ok {
		return
	}

	limit := 100
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": service.Top(entries, limit),
		"top":         service.Top(entries, service.TopSize),
		"total":       len(entries),
	})
}

// GetMyRank returns the caller's position in the leaderboard
func (h *Handler) GetMyRank(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	entries, ok := h.ranked(c)
	if !ok {
		return
	}

	for _, e := range entries {
		if e.UserID == userID {
			c.JSON(http.StatusOK, gin.H{"rank": e.Rank, "entry": e})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"rank": 0})
}

// GetStats returns game-wide statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Stats.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, domain.ErrBackendUnavailable)
		return
	}
	c.JSON(http.StatusOK, stats)
}
