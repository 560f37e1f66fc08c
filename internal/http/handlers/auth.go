package handlers

import (
	"net/http"

	"stickman_shake/internal/domain"

	"github.com/gin-gonic/gin"
)

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TelegramAuthRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

func (h *Handler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Audit.LogLogin(c.Request.Context(), res.UserID, domain.ProviderPassword, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Audit.LogLogin(c.Request.Context(), res.UserID, domain.ProviderPassword, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, res)
}

// TelegramAuth signs in with Telegram WebApp init data.
func (h *Handler) TelegramAuth(c *gin.Context) {
	var req TelegramAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if len(req.InitData) > 4096 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data too long"})
		return
	}

	res, err := h.Auth.SignInWithTelegram(c.Request.Context(), req.InitData)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Audit.LogLogin(c.Request.Context(), res.UserID, domain.ProviderTelegram, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, res)
}
