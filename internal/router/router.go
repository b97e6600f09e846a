package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/edubase-reports-api/internal/config"
	"github.com/noah-isme/edubase-reports-api/internal/handler"
	"github.com/noah-isme/edubase-reports-api/internal/middleware"
	"github.com/noah-isme/edubase-reports-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReportHandler   *handler.ReportHandler
	ScheduleHandler *handler.ScheduleHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ReportHandler != nil {
		reports := api.Group("/reports", jwtMiddleware)
		// Rendering is synchronous and expensive, so creation is rate limited.
		reports.Post("", middleware.RateLimit("report_generation", 10, time.Minute))
		deps.ReportHandler.Register(reports)
	}

	if deps.ScheduleHandler != nil {
		schedules := api.Group("/schedules", jwtMiddleware)
		schedules.Post("", middleware.RequireRole("admin", "staff"))
		schedules.Patch("/:id/activation", middleware.RequireRole("admin", "staff"))
		deps.ScheduleHandler.Register(schedules)
	}
}
