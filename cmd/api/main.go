package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/catalog-gate/internal/api/http"
	"github.com/spec-kit/catalog-gate/internal/api/http/handlers"
	"github.com/spec-kit/catalog-gate/internal/auth"
	"github.com/spec-kit/catalog-gate/internal/catalog"
	"github.com/spec-kit/catalog-gate/internal/config"
	"github.com/spec-kit/catalog-gate/internal/events"
	"github.com/spec-kit/catalog-gate/internal/gate"
	"github.com/spec-kit/catalog-gate/internal/identity"
	"github.com/spec-kit/catalog-gate/internal/observability"
	"github.com/spec-kit/catalog-gate/internal/persistence"
	"github.com/spec-kit/catalog-gate/internal/repository"
	"github.com/spec-kit/catalog-gate/internal/service"
	"github.com/spec-kit/catalog-gate/internal/session"
	"github.com/spec-kit/catalog-gate/internal/store"
	"github.com/spec-kit/catalog-gate/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dependencies := map[string]handlers.Pinger{}
	if pg.PoolHandle() != nil {
		dependencies["postgres"] = pg
	}

	var redis *persistence.Redis
	if cfg.Store.Backend == config.StoreRedis {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		dependencies["redis"] = redis
	}

	credentials, err := newCredentialStore(cfg, pg, redis)
	if err != nil {
		logger.Fatal("failed to open credential store", zap.Error(err))
	}
	codec, err := newCodec(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to build token codec", zap.Error(err))
	}
	logger.Info("session configuration",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("token_format", cfg.Auth.TokenFormat),
		zap.Duration("ttl", cfg.Auth.SessionTTL()),
	)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	manager := session.NewManager(codec, credentials,
		session.WithTTL(cfg.Auth.SessionTTL()),
		session.WithKey(cfg.Auth.StoreKey),
		session.WithLogger(logger.Named("session")),
		session.WithDispatcher(dispatcher),
		session.WithMetrics(metrics),
	)
	guard := gate.NewGuard(manager, cfg.Auth.LoginPath, logger.Named("gate"), metrics)

	var users identity.UserDirectory
	if cfg.Auth.VerifyPasswords {
		users = repository.NewUserRepository(pg.PoolHandle())
	}
	authDeps := service.AuthDependencies{
		Sessions: manager,
		Password: identity.NewPasswordSource(users),
		Logger:   logger,
	}
	if cfg.Google.Enabled() {
		google, err := identity.NewGoogleSource(identity.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURI:  cfg.Google.RedirectURI,
			AuthURL:      cfg.Google.AuthURL,
			TokenURL:     cfg.Google.TokenURL,
			UserInfoURL:  cfg.Google.UserInfoURL,
		}, oauthStateStore(credentials, logger), logger.Named("google"))
		if err != nil {
			logger.Fatal("failed to configure google sign-in", zap.Error(err))
		}
		authDeps.Google = google
	}
	authService := service.NewAuthService(authDeps)
	catalogService := service.NewCatalogService(
		catalog.NewHTTPClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout()),
		cfg.Catalog.PageSize,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:    handlers.NewAuthHandler(authService),
		Screens: handlers.NewScreensHandler(catalogService),
		Guard:   guard,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	counters := metrics.Snapshot()
	fields := make([]zap.Field, 0, len(counters))
	for _, name := range observability.SortedKeys(counters) {
		fields = append(fields, zap.Int64(name, counters[name]))
	}
	logger.Info("session counters", fields...)
}

func newCredentialStore(cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis) (store.CredentialStore, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreRedis:
		return store.NewRedis(redis.Client, cfg.Store.RedisPrefix), nil
	case config.StorePostgres:
		return store.NewPostgres(pg.PoolHandle()), nil
	case config.StoreFile:
		return store.NewFile(cfg.Store.FileDir, cfg.Store.FilePassphrase)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// oauthStateStore keeps pending sign-ins in the credential store when it can
// expire entries, and in process memory otherwise.
func oauthStateStore(credentials store.CredentialStore, logger *zap.Logger) store.ExpiringStore {
	if expiring, ok := credentials.(store.ExpiringStore); ok {
		return expiring
	}
	logger.Info("credential store cannot expire entries; keeping oauth state in memory")
	return store.NewMemory()
}

func newCodec(cfg config.AuthConfig) (auth.Codec, error) {
	if cfg.TokenFormat == config.TokenFormatJWT {
		return auth.NewJWTCodec(cfg.JWTSecret)
	}
	return auth.NewJSONCodec(), nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
