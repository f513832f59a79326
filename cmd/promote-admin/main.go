// Command promote-admin grants the administrative flag to an existing
// account. Registration never creates administrators, so this is how the
// first one is made.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/example/civic-platform/config"
	"github.com/example/civic-platform/logging"
	"github.com/example/civic-platform/modules/auth"
	"github.com/example/civic-platform/modules/cache"
	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "", "email of the account to promote")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote-admin -email user@example.com")
		os.Exit(2)
	}

	if err := run(*email); err != nil {
		fmt.Fprintf(os.Stderr, "promote-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(email string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := auth.OpenDatabase(cfg.DB)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// A running server may hold the account in Redis; the promotion
	// must evict it.
	userCache := cache.NewModule(cfg.Cache, logger)
	if err := userCache.Start(ctx); err != nil {
		return err
	}
	defer userCache.Stop(context.Background())

	service := auth.NewAuthService(
		auth.NewUserRepository(db),
		auth.NewPasswordHasher(cfg.Hash.Cost, cfg.Hash.Concurrency),
		auth.NewTokenManager(auth.TokenConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			TTL:    cfg.JWT.TTL,
		}),
		userCache,
		logger,
	)

	user, err := service.PromoteUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	logger.Info("user promoted to admin",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email))
	return nil
}
