package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jb-platform/maintenance-service/internal/api/http/handlers"
	"github.com/jb-platform/maintenance-service/internal/auth"
	"github.com/jb-platform/maintenance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Parties        *handlers.PartiesHandler
	Tickets        *handlers.TicketsHandler
	Workflow       *handlers.WorkflowHandler
	Communications *handlers.CommunicationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Users.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	api.Get("/me", auth.RequireCapability(), cfg.Users.Me)
	api.Get("/me/quotes", auth.RequireRole(domain.RoleContractor), cfg.Tickets.MyQuotes)
	api.Post("/users", auth.RequireCapability(domain.CapUsersManage), cfg.Users.CreateUser)

	manageTenants := auth.RequireCapability(domain.CapTenantsManage)
	api.Post("/tenants", manageTenants, cfg.Parties.CreateTenant)
	api.Get("/tenants", manageTenants, cfg.Parties.ListTenants)

	manageContractors := auth.RequireCapability(domain.CapContractorsManage)
	api.Post("/contractors", manageContractors, cfg.Parties.CreateContractor)
	api.Patch("/contractors/:id", manageContractors, cfg.Parties.UpdateContractor)
	api.Get("/contractors", auth.RequireCapability(domain.CapContractorsManage, domain.CapWorkflowManage), cfg.Parties.ListContractors)

	viewTicket := auth.RequireCapability(domain.CapTicketsViewAll, domain.CapTicketsViewOwn, domain.CapQuotesRespond)
	manage := auth.RequireCapability(domain.CapWorkflowManage)
	respond := auth.RequireCapability(domain.CapQuotesSubmit, domain.CapQuotesRespond)

	tickets := api.Group("/tickets")
	tickets.Post("/", auth.RequireCapability(domain.CapTicketsCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", auth.RequireCapability(domain.CapTicketsViewAll, domain.CapTicketsViewOwn), cfg.Tickets.ListTickets)
	tickets.Get("/:id", viewTicket, cfg.Tickets.GetTicket)
	tickets.Get("/:id/quotes", viewTicket, cfg.Tickets.ListQuotes)
	tickets.Get("/:id/events", viewTicket, cfg.Tickets.ListEvents)
	tickets.Get("/:id/communications", viewTicket, cfg.Tickets.ListCommunications)
	tickets.Patch("/:id/status", manage, cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/priority", manage, cfg.Tickets.UpdatePriority)

	tickets.Post("/:id/assignments", manage, cfg.Workflow.Assign)
	tickets.Post("/:id/quotes/:quoteId/submit", respond, cfg.Workflow.Submit)
	tickets.Post("/:id/quotes/:quoteId/decline", respond, cfg.Workflow.Decline)
	tickets.Post("/:id/quotes/:quoteId/approve", manage, cfg.Workflow.Approve)
	tickets.Post("/:id/quotes/:quoteId/reject", manage, cfg.Workflow.Reject)
	tickets.Post("/:id/quotes/:quoteId/start", manage, cfg.Workflow.Start)
	tickets.Post("/:id/quotes/:quoteId/complete", manage, cfg.Workflow.Complete)

	tickets.Post("/:id/communications", auth.RequireCapability(domain.CapCommunicationsSend), cfg.Communications.Send)
	api.Post("/communications/:id/resend", auth.RequireCapability(domain.CapCommunicationsResend), cfg.Communications.Resend)
}
