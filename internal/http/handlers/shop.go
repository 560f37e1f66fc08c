package handlers

import (
	"net/http"

	"stickman_shake/internal/game"

	"github.com/gin-gonic/gin"
)

// GetCatalog returns the shop configuration
func (h *Handler) GetCatalog(c *gin.Context) {
	cosmetics := make(map[game.Category][]game.CosmeticDefinition, len(game.Categories))
	for _, cat := range game.Categories {
		cosmetics[cat] = h.Catalog.SortedCosmetics(cat)
	}
	c.JSON(http.StatusOK, gin.H{
		"upgrades":  h.Catalog.Upgrades,
		"artifacts": h.Catalog.Artifacts,
		"cosmetics": cosmetics,
	})
}

func (h *Handler) BuyUpgrade(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}

	p, err := h.Engine.BuyUpgrade(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Engine.View(p))
}

// BuyArtifact mints the artifact on the ledger and debits essence. Blocks until the transaction settles.
func (h *Handler) BuyArtifact(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}

	p, digest, err := h.Engine.BuyArtifact(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": h.Engine.View(p), "digest": digest})
}

// EquipArtifact toggles the artifact: equips it or, if already equipped, unequips.
func (h *Handler) EquipArtifact(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}

	p, err := h.Engine.ToggleArtifact(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Engine.View(p))
}

func (h *Handler) BuyCosmetic(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}

	p, err := h.Engine.BuyCosmetic(c.Request.Context(), p, game.Category(c.Param("category")), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Engine.View(p))
}

func (h *Handler) EquipCosmetic(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}

	p, err := h.Engine.EquipCosmetic(c.Request.Context(), p, game.Category(c.Param("category")), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Engine.View(p))
}

// Transcend submits the score to the ledger and resets the run.
func (h *Handler) Transcend(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}

	p, digest, err := h.Engine.Transcend(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": h.Engine.View(p), "digest": digest})
}
