package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/catalog-gate/internal/api/http/handlers"
	"github.com/spec-kit/catalog-gate/internal/gate"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Screens *handlers.ScreensHandler
	Guard   *gate.Guard
}

// RegisterRoutes wires HTTP routes. Screens sit behind the session gate.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/google/start", cfg.Auth.GoogleStart)
	authGroup.Get("/google/callback", cfg.Auth.GoogleCallback)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/session", cfg.Auth.Session)

	requireSession := cfg.Guard.Middleware()
	app.Get("/home", requireSession, cfg.Screens.Home)
	app.Get("/products/:id", requireSession, cfg.Screens.Product)
}
