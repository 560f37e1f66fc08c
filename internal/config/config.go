package config

import (
	"os"
	"strconv"
	"time"

	"stickman_shake/internal/ledger"
	"stickman_shake/internal/logger"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	AppPort     string
	AppID       string
	StoreDriver string
	DatabaseURL string
	JWTSecret   string
	BotToken    string
	CatalogPath string
	LogLevel    string
	LogJSON     bool

	AllowedOrigin string

	// Redis: rate limiting and profile change notifications
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Ledger
	RelayerURL        string
	RelayerKey        string
	LedgerNetwork     ledger.Network
	PackageID         string
	LeaderboardID     string
	WalletProofDomain string
	DevSignerDelay    time.Duration

	// Limits
	APIRateLimit    int
	APIRateWindow   time.Duration
	AuthRateLimit   int
	AuthRateWindow  time.Duration
	ActionRateLimit int
	ActionWindow    time.Duration
	WSConnectLimit  int
	WSConnectWindow time.Duration
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = StorePostgres
	}
	if driver != StorePostgres && driver != StoreMemory {
		logger.Fatal("unknown STORE_DRIVER", "driver", driver)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && driver == StorePostgres {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		appID = "stickman-shake-v1"
	}

	network := ledger.NetworkTestnet
	switch os.Getenv("LEDGER_NETWORK") {
	case "mainnet":
		network = ledger.NetworkMainnet
	case "devnet":
		network = ledger.NetworkDevnet
	}

	packageID := os.Getenv("LEDGER_PACKAGE_ID")
	if packageID == "" {
		packageID = ledger.DefaultPackageID
	}
	leaderboardID := os.Getenv("LEDGER_LEADERBOARD_ID")
	if leaderboardID == "" {
		leaderboardID = ledger.DefaultLeaderboardID
	}

	return &Config{
		AppPort:     port,
		AppID:       appID,
		StoreDriver: driver,
		DatabaseURL: dbURL,
		JWTSecret:   jwtSecret,
		BotToken:    os.Getenv("BOT_TOKEN"),
		CatalogPath: os.Getenv("CATALOG_PATH"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogJSON:     os.Getenv("LOG_JSON") == "true",

		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		RelayerURL:        os.Getenv("LEDGER_RELAYER_URL"),
		RelayerKey:        os.Getenv("LEDGER_RELAYER_KEY"),
		LedgerNetwork:     network,
		PackageID:         packageID,
		LeaderboardID:     leaderboardID,
		WalletProofDomain: os.Getenv("WALLET_PROOF_DOMAIN"),
		DevSignerDelay:    time.Duration(envInt("DEV_SIGNER_DELAY_MS", 1500)) * time.Millisecond,

		APIRateLimit:    envInt("API_RATE_LIMIT", 120),
		APIRateWindow:   time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AuthRateLimit:   envInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow:  time.Duration(envInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		ActionRateLimit: envInt("ACTION_RATE_LIMIT", 60), // макс действий за окно
		ActionWindow:    time.Duration(envInt("ACTION_RATE_WINDOW", 60)) * time.Second,
		WSConnectLimit:  envInt("WS_CONNECT_LIMIT", 20),
		WSConnectWindow: time.Duration(envInt("WS_CONNECT_WINDOW_SECONDS", 60)) * time.Second,
	}
}

// envInt reads a positive int, falling back to def.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("ignoring invalid int env", "key", key, "value", v)
		return def
	}
	return n
}
