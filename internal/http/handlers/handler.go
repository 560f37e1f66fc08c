package handlers

import (
	"errors"
	"net/http"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/game"
	"stickman_shake/internal/http/middleware"
	"stickman_shake/internal/logger"
	"stickman_shake/internal/service"
	"stickman_shake/internal/store"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Auth     *service.AuthService
	Engine   *service.Engine
	Wallet   *service.WalletService
	Audit    *service.AuditService
	Stats    *service.StatsService
	Profiles store.Store
	Catalog  *game.Catalog
}

func NewHandler(auth *service.AuthService, engine *service.Engine, wallet *service.WalletService, audit *service.AuditService, profiles store.Store) *Handler {
	return &Handler{
		Auth:     auth,
		Engine:   engine,
		Wallet:   wallet,
		Audit:    audit,
		Stats:    service.NewStatsService(profiles),
		Profiles: profiles,
		Catalog:  engine.Catalog(),
	}
}

// statusFor maps an action error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAlreadyOwned),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrActionInProgress),
		errors.Is(err, domain.ErrStaleProfile):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWalletNotConnected):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrLedgerTransactionFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidInitData):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrUnknownIdentifier),
		errors.Is(err, domain.ErrNotOwned),
		errors.Is(err, domain.ErrInvalidMutation),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidWallet):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProviderDisabled):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// currentProfile loads the caller's profile. Writes the error response itself.
func (h *Handler) currentProfile(c *gin.Context) (domain.PlayerProfile, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return domain.PlayerProfile{}, false
	}
	p, err := h.Profiles.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(c, err)
		} else {
			writeError(c, errors.Join(domain.ErrBackendUnavailable, err))
		}
		return domain.PlayerProfile{}, false
	}
	return p, true
}
