package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Profile returns the public part of another player's profile.
func (h *Handler) Profile(c *gin.Context) {
	p, err := h.Profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":                p.UserID,
		"username":              p.Username,
		"level":                 p.Level,
		"totalEssenceEarned":    p.TotalEssenceEarned,
		"onChainEvolutionLevel": p.OnChainEvolutionLevel,
		"artifacts":             p.Artifacts,
		"equippedBackground":    p.EquippedBackground,
		"equippedBottle":        p.EquippedBottle,
		"equippedSkin":          p.EquippedSkin,
	})
}
