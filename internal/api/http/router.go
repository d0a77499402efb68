package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticketdesk/internal/api/http/handlers"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Incidents      *handlers.TicketsHandler
	Changes        *handlers.TicketsHandler
	Maintenance    *handlers.TicketsHandler
	Admins         *handlers.AdminHandler
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
	authGroup.Post("/admin/login", cfg.Admins.Login)
	authGroup.Get("/admin/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Admins.Me)

	support := app.Group("/api/v1/support", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	support.Get("/admin-users", cfg.Admins.ListAdminUsers)

	registerTickets(support.Group("/incidents"), cfg.Incidents)
	registerTickets(support.Group("/change-requests"), cfg.Changes)
	maintenance := support.Group("/maintenance-tasks")
	maintenance.Get("/calendar", cfg.Maintenance.Calendar)
	registerTickets(maintenance, cfg.Maintenance)
}

// registerTickets mounts the shared ticket surface. Static paths come before /:id.
func registerTickets(r fiber.Router, h *handlers.TicketsHandler) {
	admin := auth.RequireAdmin()

	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/:id", h.Get)
	r.Post("/", admin, h.Create)
	r.Patch("/:id", admin, h.Update)
	r.Post("/:id/transition", admin, h.Transition)
	r.Put("/:id/assignee", admin, h.Assign)
	r.Post("/:id/notes", admin, h.AddWorkNote)
	r.Put("/:id/approval", admin, h.SetApproval)
}
