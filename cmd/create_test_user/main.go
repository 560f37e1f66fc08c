package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"stickman_shake/internal/config"
	"stickman_shake/internal/db"
	"stickman_shake/internal/game"
	"stickman_shake/internal/logger"
	"stickman_shake/internal/repository"
	"stickman_shake/internal/service"
	"stickman_shake/internal/store"
)

// Creates (or signs in) a password account and prints a session token.
func main() {
	email := flag.String("email", "tester@example.com", "account email")
	password := flag.String("password", "tester1", "account password")
	essence := flag.Int64("essence", 0, "essence to credit after sign-in")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, false)
	service.InitJWT()

	pool := db.Connect(cfg.DatabaseURL)
	defer pool.Close()

	profiles := store.NewPostgresStore(repository.NewProfileRepository(pool), store.NewLocalBroker())
	auth := service.NewAuthService(repository.NewAccountRepository(pool), profiles, game.Default(), nil, "")
	ctx := context.Background()

	res, err := auth.SignUp(ctx, *email, *password)
	if errors.Is(err, service.ErrEmailTaken) {
		res, err = auth.SignIn(ctx, *email, *password)
	}
	if err != nil {
		logger.Fatal("sign in failed", "email", *email, "error", err)
	}
	logger.Info("account ready", "user_id", res.UserID, "created", res.Created)

	if *essence > 0 {
		<-service.NewSynchronizer(profiles).Earn(ctx, res.UserID, *essence)
		p, err := profiles.Get(ctx, res.UserID)
		if err != nil {
			logger.Fatal("read profile", "error", err)
		}
		logger.Info("credited essence", "essence", p.Essence, "level", p.Level)
	}

	fmt.Printf("token=%s\n", res.Token)
}
