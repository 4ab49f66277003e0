package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/briefdesk/brief-service/internal/api/http/handlers"
	"github.com/briefdesk/brief-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Chat           *handlers.ChatHandler
	Intake         *handlers.IntakeHandler
	Briefs         *handlers.BriefHandler
	Email          *handlers.EmailHandler
	Operator       *handlers.OperatorHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/chat", cfg.Chat.Chat)
	app.Post("/conversations", cfg.Intake.CreateConversation)
	app.Post("/save-conversation", cfg.Intake.SaveConversation)

	app.Post("/brief/preview", cfg.Intake.PreviewBrief)
	app.Get("/brief/:id", cfg.Briefs.GetBrief)
	app.Get("/brief/:id/html", cfg.Briefs.GetBriefHTML)

	app.Post("/operator/login", cfg.Operator.Login)

	operator := app.Group("", cfg.AuthMiddleware.Handle)
	operator.Get("/email-status", cfg.Email.EmailStatus)
	operator.Post("/retry-email", cfg.Email.RetryEmail)
	operator.Patch("/conversations/:id/status", cfg.Operator.UpdateStatus)
}
