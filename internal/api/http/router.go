package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role guards implement the permission table
// of the escalation workflow; payload preconditions live in the handlers.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/internal/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	tickets.Post("", auth.RequireRole(domain.RoleL1Agent), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/escalated", auth.RequireRole(domain.RoleL2Support, domain.RoleL3Support), cfg.Tickets.ListEscalatedTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)

	tickets.Put("/:id/status", auth.RequireRole(domain.RoleL1Agent), cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/escalate-l2", auth.RequireRole(domain.RoleL1Agent), cfg.Tickets.EscalateL2)
	tickets.Put("/:id/escalate-l3", auth.RequireRole(domain.RoleL2Support), cfg.Tickets.EscalateL3)
	tickets.Put("/:id/critical-value", auth.RequireRole(domain.RoleL2Support, domain.RoleL3Support), cfg.Tickets.SetCriticalValue)
	tickets.Put("/:id/resolve", auth.RequireRole(domain.RoleL3Support), cfg.Tickets.Resolve)
	tickets.Post("/:id/actions", auth.RequireRole(domain.RoleL2Support, domain.RoleL3Support), cfg.Tickets.AddAction)
}
