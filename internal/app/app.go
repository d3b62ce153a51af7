// Package app assembles the fiber application serving the product API.
package app

import (
	"errors"
	"time"

	"inventory/internal/database"
	"inventory/internal/events"
	"inventory/internal/handlers"
	"inventory/internal/metrics"
	"inventory/internal/middleware"
	"inventory/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "inventory"

// Deps are the collaborators of the HTTP layer. Exactly one of Provider and
// Repository is expected: Provider gives every request its own database
// session, Repository serves all requests from one in-process store.
type Deps struct {
	Log        *zap.Logger
	Provider   database.Provider
	Repository repositories.ProductRepository
	Notifier   *events.Notifier

	// Registry enables /metrics when set.
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
	AllowOrigins string
}

// New builds the fiber app with middleware, product routes and the
// not-found and error responses.
func New(deps Deps) *fiber.App {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	allowOrigins := deps.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	if deps.Metrics != nil {
		app.Use(middleware.Metrics(deps.Metrics, serviceName))
	}
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Products CRUD API",
			"stack":   "Go + Fiber + GORM + Postgres",
		})
	})

	app.Get("/health", health(deps.Provider, log))

	if deps.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	repository := handlers.RequestRepository
	if deps.Provider != nil {
		api.Use(middleware.Database(deps.Provider))
	} else if deps.Repository != nil {
		repository = handlers.FixedRepository(deps.Repository)
	}
	handlers.NewProductHandler(repository, deps.Notifier, log).RegisterRoutes(api)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	return app
}

func health(provider database.Provider, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if provider != nil {
			if err := provider.Ping(c.UserContext()); err != nil {
				log.Warn("health check failed", zap.Error(err))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "database unavailable",
				})
			}
		}
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// errorHandler turns every error that escapes a handler into a JSON body.
// Anything that is not a *fiber.Error is reported as a generic 500.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			msg := fe.Message
			if fe.Code == fiber.StatusNotFound {
				msg = "not found"
			}
			return c.Status(fe.Code).JSON(fiber.Map{"error": msg})
		}

		log.Error("unhandled error",
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
