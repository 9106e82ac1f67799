package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Reports        *handlers.ReportsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Users.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle)

	manage := []domain.Role{domain.RoleAdmin, domain.RoleOperator}
	working := []domain.Role{domain.RoleAdmin, domain.RoleOperator, domain.RoleMaster}

	tickets := authed.Group("/tickets")
	tickets.Get("", auth.RequireRole(), cfg.Tickets.ListTickets)
	tickets.Post("", auth.RequireRole(manage...), cfg.Tickets.CreateTicket)
	tickets.Get("/:number", auth.RequireRole(), cfg.Tickets.GetTicket)
	tickets.Put("/:number", auth.RequireRole(manage...), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:number", auth.RequireRole(manage...), cfg.Tickets.DeleteTicket)
	tickets.Post("/:number/status", auth.RequireRole(working...), cfg.Tickets.ChangeStatus)
	tickets.Post("/:number/assignee", auth.RequireRole(manage...), cfg.Tickets.AssignSpecialist)
	tickets.Post("/:number/comments", auth.RequireRole(), cfg.Tickets.AddComment)
	tickets.Post("/:number/parts", auth.RequireRole(domain.RoleMaster), cfg.Tickets.AddPart)
	tickets.Delete("/:number/parts/:partID", auth.RequireRole(domain.RoleMaster), cfg.Tickets.RemovePart)
	tickets.Post("/:number/extensions", auth.RequireRole(working...), cfg.Tickets.ExtendDeadline)

	reports := authed.Group("/reports")
	reports.Get("/summary", auth.RequireRole(), cfg.Reports.Summary)
	reports.Get("/overdue", auth.RequireRole(), cfg.Reports.Overdue)

	notifications := authed.Group("/notifications")
	notifications.Get("", auth.RequireRole(), cfg.Notifications.List)
	notifications.Post("/:id/read", auth.RequireRole(), cfg.Notifications.MarkRead)

	users := authed.Group("/users")
	users.Get("", auth.RequireRole(domain.RoleAdmin), cfg.Users.ListUsers)
	users.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Users.CreateUser)
	users.Get("/masters", auth.RequireRole(manage...), cfg.Users.ListMasters)
	users.Post("/:id/deactivate", auth.RequireRole(domain.RoleAdmin), cfg.Users.DeactivateUser)
}
