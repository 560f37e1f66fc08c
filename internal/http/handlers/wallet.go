package handlers

import (
	"net/http"

	"stickman_shake/internal/http/middleware"
	"stickman_shake/internal/ledger"

	"github.com/gin-gonic/gin"
)

// ConnectWalletRequest is sent by the wallet adapter after the user approves the connection
type ConnectWalletRequest struct {
	Account ledger.WalletAccount `json:"account"`
	Proof   ledger.ConnectProof  `json:"proof"`
}

// GetWalletPayload issues the nonce for the ownership proof
func (h *Handler) GetWalletPayload(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"payload": h.Wallet.Payload()})
}

// GetWallet returns the linked wallet address
func (h *Handler) GetWallet(c *gin.Context) {
	p, ok := h.currentProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": p.WalletAddress != "",
		"address":   p.WalletAddress,
	})
}

// ConnectWallet links a wallet to the caller's profile
func (h *Handler) ConnectWallet(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ConnectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.Wallet.Connect(c.Request.Context(), userID, req.Account, req.Proof)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "address": p.WalletAddress})
}

// DisconnectWallet unlinks the wallet
func (h *Handler) DisconnectWallet(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if _, err := h.Wallet.Disconnect(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
