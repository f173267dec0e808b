package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"

	"docconv/internal/domain"
	"docconv/internal/handlers"
	"docconv/internal/metrics"
	u "docconv/internal/utils"
)

// writeError renders the JSON error envelope shared by every endpoint.
func writeError(c *fiber.Ctx, code int, msg string, kind domain.Kind) error {
	body := fiber.Map{
		"code":    code,
		"message": msg,
	}
	if kind != "" {
		body["kind"] = kind
	}
	return c.Status(code).JSON(fiber.Map{"error": body})
}

// SetupApp creates and configures a new Fiber app instance
func SetupApp(cfg u.Config, redis *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Limits.MaxUploadBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code, kind, msg := handlers.ErrorResponse(err)
			u.Warn("Request failed", "path", c.Path(), "status", code, "kind", string(kind), "message", msg)
			return writeError(c, code, msg, kind)
		},
	})

	RegisterMiddleware(app, cfg)
	RegisterRoutes(app, cfg, redis, metrics.New())

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, cfg u.Config, redis *redis.Client, rec *metrics.Recorder) {
	v1 := app.Group("/v1")

	// One shared service so every tool route uses the same dispatcher.
	svc := handlers.NewConversionService(cfg, redis, rec)

	v1.Post("/convert/:tool", svc.HandleConversion)
	v1.Get("/tools", handlers.HandleTools)

	v1.Get("/monitor", monitor.New())

	app.Get("/metrics", adaptor.HTTPHandler(rec.Handler()))
}
