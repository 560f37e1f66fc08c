package handlers

import (
	"net/http"
	"strconv"

	"stickman_shake/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// Me returns the caller's profile with derived values.
func (h *Handler) Me(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.View(p))
}

// MyActivity returns the caller's audit trail.
func (h *Handler) MyActivity(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	logs, err := h.Audit.GetUserAuditLogs(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": logs})
}
