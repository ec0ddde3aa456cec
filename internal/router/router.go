package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/unipath-io/unipath-api/internal/config"
	"github.com/unipath-io/unipath-api/internal/handler"
	"github.com/unipath-io/unipath-api/internal/middleware"
	"github.com/unipath-io/unipath-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProgramHandler     *handler.ProgramHandler
	ApplicationHandler *handler.ApplicationHandler
	StudentHandler     *handler.StudentHandler
	ThreadHandler      *handler.ThreadHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ProgramHandler != nil {
		programs := api.Group("/programs", jwtMiddleware)
		deps.ProgramHandler.Register(programs)
	}

	if deps.ApplicationHandler != nil {
		applications := api.Group("/applications",
			jwtMiddleware,
			middleware.RequireRole("student", "agent", "editor"),
		)
		deps.ApplicationHandler.Register(applications)
	}

	if deps.StudentHandler != nil {
		students := api.Group("/students",
			jwtMiddleware,
			middleware.RequireRole("student", "agent", "editor"),
		)
		deps.StudentHandler.Register(students)
	}

	if deps.ThreadHandler != nil {
		threads := api.Group("/threads",
			jwtMiddleware,
			middleware.RequireRole("student", "agent", "editor"),
		)
		threads.Use("/:id/messages", middleware.RateLimit("thread_messages", 30, time.Minute))
		deps.ThreadHandler.Register(threads)
	}
}
