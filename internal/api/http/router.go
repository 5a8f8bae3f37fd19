package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/calculation-service/internal/api/http/handlers"
	"github.com/spec-kit/calculation-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Calculations   *handlers.CalculationsHandler
	Pages          *handlers.PagesHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token", cfg.Auth.Token)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	calcs := app.Group("/calculations", cfg.AuthMiddleware.Handle)
	calcs.Post("/", cfg.Calculations.Create)
	calcs.Get("/", cfg.Calculations.List)
	calcs.Get("/:id", cfg.Calculations.Get)
	calcs.Put("/:id", cfg.Calculations.Update)
	calcs.Delete("/:id", cfg.Calculations.Delete)

	app.Get("/", cfg.Pages.Index)
	app.Get("/login", cfg.Pages.Login)
	app.Get("/register", cfg.Pages.Register)

	dashboard := app.Group("/dashboard", cfg.AuthMiddleware.HandlePage)
	dashboard.Get("/", cfg.Pages.Dashboard)
	dashboard.Get("/view/:id", cfg.Pages.View)
	dashboard.Get("/edit/:id", cfg.Pages.Edit)
}
