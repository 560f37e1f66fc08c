package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stickman_shake/internal/config"
	"stickman_shake/internal/db"
	"stickman_shake/internal/game"
	httpServer "stickman_shake/internal/http"
	"stickman_shake/internal/http/handlers"
	"stickman_shake/internal/http/middleware"
	"stickman_shake/internal/ledger"
	"stickman_shake/internal/logger"
	"stickman_shake/internal/repository"
	"stickman_shake/internal/service"
	"stickman_shake/internal/store"
	"stickman_shake/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	catalog := game.Default()
	if cfg.CatalogPath != "" {
		c, err := game.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			logger.Fatal("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		}
		catalog = c
	}

	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}
	middleware.InitRedisRateLimiter(rdb)

	// Storage
	var (
		dbPool   *pgxpool.Pool
		profiles store.Store
		accounts service.AccountStore
		audit    *service.AuditService
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("using in-memory store, progress is lost on restart")
		profiles = store.NewMemoryStore()
		accounts = store.NewMemoryAccounts()
		audit = service.NewAuditService(nil)
	default:
		dbPool = db.Connect(cfg.DatabaseURL)
		defer dbPool.Close()

		var broker store.Broker = store.NewLocalBroker()
		if rdb != nil {
			broker = store.NewRedisBroker(rdb, cfg.AppID)
		}
		pg := store.NewPostgresStore(repository.NewProfileRepository(dbPool), broker)
		go func() {
			if err := pg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("profile change feed stopped", "error", err)
			}
		}()
		profiles = pg
		accounts = repository.NewAccountRepository(dbPool)
		audit = service.NewAuditService(repository.NewAuditRepository(dbPool))
	}

	// Ledger
	var signer ledger.Ledger
	if cfg.RelayerURL != "" {
		signer = ledger.NewRelayer(cfg.RelayerURL, cfg.RelayerKey, cfg.LedgerNetwork)
		logger.Info("ledger relayer configured", "network", cfg.LedgerNetwork)
	} else {
		signer = ledger.NewDevSigner(cfg.DevSignerDelay)
		logger.Warn("LEDGER_RELAYER_URL not set, using dev signer")
	}

	sync := service.NewSynchronizer(profiles)
	engine := service.NewEngine(service.EngineConfig{
		Catalog:       catalog,
		Sync:          sync,
		Ledger:        signer,
		Audit:         audit,
		PackageID:     cfg.PackageID,
		LeaderboardID: cfg.LeaderboardID,
	})
	auth := service.NewAuthService(accounts, profiles, catalog, audit, cfg.BotToken)
	wallet := service.NewWalletService(sync, audit, cfg.WalletProofDomain)

	hub := ws.NewHub(ws.HubConfig{
		Engine: engine,
		Store:  profiles,
		Ensure: auth.EnsureProfile,
		Stats:  service.NewStatsService(profiles),
	})
	if err := hub.Start(); err != nil {
		logger.Fatal("failed to start ws hub", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	httpServer.RegisterRoutes(r, httpServer.Routes{
		Handler: handlers.NewHandler(auth, engine, wallet, audit, profiles),
		Health:  handlers.NewHealthHandler(dbPool, rdb, version),
		Hub:     hub,
		Config:  cfg,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	hub.Stop()
	stop()

	logger.Info("server exited")
}
