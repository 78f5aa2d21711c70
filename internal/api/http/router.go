package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Customization  *handlers.CustomizationHandler
	Analytics      *handlers.AnalyticsHandler
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

	requireAuth := cfg.AuthMiddleware.Handle
	optionalAuth := cfg.AuthMiddleware.Optional
	api := app.Group("/api")

	// Visitors address a ticket by its opaque id, so read and reply accept
	// anonymous callers.
	tickets := api.Group("/tickets")
	tickets.Post("/create", cfg.Tickets.CreateTicket)
	tickets.Get("/", requireAuth, auth.RequireStaff(), cfg.Tickets.ListTickets)
	tickets.Get("/search", requireAuth, auth.RequireStaff(), cfg.Tickets.SearchTickets)
	tickets.Get("/:id", optionalAuth, cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", optionalAuth, cfg.Tickets.AddMessage)
	tickets.Put("/:id/resolve", requireAuth, auth.RequireStaff(), cfg.Tickets.ResolveTicket)
	tickets.Put("/:id/assign", requireAuth, auth.RequireAdmin(), cfg.Tickets.AssignTicket)
	tickets.Put("/:id/mark-missed", requireAuth, auth.RequireStaff(), cfg.Tickets.MarkMissed)

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/check-admin", cfg.Auth.CheckAdmin)
	authGroup.Get("/verify", requireAuth, cfg.Auth.Verify)
	authGroup.Post("/register", requireAuth, auth.RequireAdmin(), cfg.Users.AddMember)

	users := api.Group("/users", requireAuth, auth.RequireStaff())
	users.Get("/team", cfg.Users.ListTeam)
	users.Post("/team", auth.RequireAdmin(), cfg.Users.AddMember)
	users.Put("/team/:id", cfg.Users.EditMember)
	users.Delete("/team/:id", auth.RequireAdmin(), cfg.Users.DeleteMember)
	users.Put("/profile", cfg.Users.UpdateProfile)
	users.Put("/password", cfg.Users.ChangePassword)

	customization := api.Group("/customization")
	customization.Get("/", cfg.Customization.Get)
	customization.Put("/", requireAuth, auth.RequireAdmin(), cfg.Customization.Update)

	analytics := api.Group("/analytics", requireAuth, auth.RequireStaff())
	analytics.Get("/dashboard", cfg.Analytics.Dashboard)
	analytics.Get("/missed-chats", cfg.Analytics.MissedChats)
	analytics.Get("/avg-reply-time", cfg.Analytics.AvgReplyTime)
	analytics.Get("/resolution-rate", cfg.Analytics.ResolutionRate)
}
