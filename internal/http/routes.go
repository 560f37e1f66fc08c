package http

import (
	"stickman_shake/internal/config"
	"stickman_shake/internal/http/handlers"
	"stickman_shake/internal/http/middleware"
	"stickman_shake/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes is everything the router needs.
type Routes struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
	Config  *config.Config
}

func RegisterRoutes(r *gin.Engine, rt Routes) {
	cfg := rt.Config

	r.Use(middleware.RequestLogger(), middleware.Metrics(), middleware.CORS(cfg.AllowedOrigin))

	// Health checks (no rate limiting)
	r.GET("/health", rt.Health.Health)
	r.GET("/healthz", rt.Health.Liveness)
	r.GET("/readyz", rt.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live game channel (per-IP reconnect limit)
	r.GET("/ws", middleware.SimpleRateLimit(cfg.WSConnectLimit, cfg.WSConnectWindow), ws.HandleWS(rt.Hub, cfg.AllowedOrigin))

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, rt.Handler, cfg)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, cfg *config.Config) {
	// Auth
	auth := api.Group("/auth")
	auth.Use(middleware.RedisRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow))
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/signin", h.SignIn)
		auth.POST("/telegram", h.TelegramAuth)
	}

	// Public
	api.GET("/catalog", h.GetCatalog)
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/stats", h.GetStats)
	api.GET("/profile/:id", h.Profile)
	api.GET("/wallet/payload", h.GetWalletPayload)

	// Player
	me := api.Group("")
	me.Use(middleware.JWT())
	{
		me.GET("/me", h.Me)
		me.GET("/me/activity", h.MyActivity)
		me.GET("/leaderboard/rank", h.GetMyRank)
		me.GET("/wallet", h.GetWallet)
	}

	// Shop and ledger actions (per user rate limit)
	actions := api.Group("")
	actions.Use(middleware.JWT(), middleware.ActionRateLimit(cfg.ActionRateLimit, cfg.ActionWindow))
	{
		actions.POST("/upgrades/:id/buy", h.BuyUpgrade)
		actions.POST("/artifacts/:id/buy", h.BuyArtifact)
		actions.POST("/artifacts/:id/equip", h.EquipArtifact)
		actions.POST("/cosmetics/:category/:id/buy", h.BuyCosmetic)
		actions.POST("/cosmetics/:category/:id/equip", h.EquipCosmetic)
		actions.POST("/transcend", h.Transcend)
		actions.POST("/wallet/connect", h.ConnectWallet)
		actions.DELETE("/wallet", h.DisconnectWallet)
	}
}
