package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/escolarhq/notas-api/internal/config"
	"github.com/escolarhq/notas-api/internal/handler"
	"github.com/escolarhq/notas-api/internal/middleware"
	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ScoreHandler    *handler.ScoreHandler
	GradingHandler  *handler.GradingHandler
	ReportHandler   *handler.ReportHandler
	ActivityHandler *handler.ActivityHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	canGrade := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)

	if deps.ScoreHandler != nil {
		scores := api.Group("/scores", jwtMiddleware, canGrade)
		deps.ScoreHandler.Register(scores)

		evaluations := api.Group("/evaluations", jwtMiddleware, canGrade,
			middleware.RateLimit("score_batch", cfg.RateLimitMax, cfg.RateLimitWindow))
		deps.ScoreHandler.RegisterBatch(evaluations)
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/definitive-grades", jwtMiddleware, middleware.RequireRole(models.RoleAdmin),
			middleware.RateLimit("definitive_compute", cfg.RateLimitMax, cfg.RateLimitWindow))
		deps.GradingHandler.Register(grading)
	}

	if deps.ReportHandler != nil {
		reports := api.Group("/reports", jwtMiddleware)
		deps.ReportHandler.Register(reports)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
		deps.ActivityHandler.Register(activity)
	}
}
