package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/account-console/internal/api/http/handlers"
	"github.com/spec-kit/account-console/internal/auth"
	"github.com/spec-kit/account-console/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/users/signup", cfg.Users.SignUp)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/users/verify-email", cfg.Users.VerifyEmail)
	authGroup.Post("/admins/login", cfg.Admin.Login)

	me := app.Group("/me", cfg.AuthMiddleware.Handle, auth.RequireUser())
	me.Get("", cfg.Users.Me)
	me.Put("", cfg.Users.UpdateMe)
	me.Post("/withdraw", cfg.Users.Withdraw)
	me.Post("/password", cfg.Users.ChangePassword)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/statuses", cfg.Admin.Statuses)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Post("/users/:id/status", cfg.Admin.ChangeStatus)
	admin.Get("/audit-logs", cfg.Admin.ListAuditLogs)
}
