// Command useradd provisions or resets a local password account.
//
//	useradd -email a@b.com -password s3cret
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/catalog-gate/internal/auth"
	"github.com/spec-kit/catalog-gate/internal/config"
	"github.com/spec-kit/catalog-gate/internal/identity"
	"github.com/spec-kit/catalog-gate/internal/observability"
	"github.com/spec-kit/catalog-gate/internal/persistence"
	"github.com/spec-kit/catalog-gate/internal/repository"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	cost := flag.Int("cost", auth.DefaultBcryptCost, "bcrypt cost")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if !identity.ValidEmail(*email) {
		logger.Fatal("a valid -email is required")
	}
	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	hash, err := auth.HashPassword(*password, *cost)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}
	user, err := repository.NewUserRepository(pg.PoolHandle()).Create(ctx, *email, hash)
	if err != nil {
		logger.Fatal("failed to save account", zap.Error(err))
	}
	logger.Info("account ready", zap.String("id", user.ID), zap.String("email", user.Email))
}
