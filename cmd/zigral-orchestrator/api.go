// Package main provides the Zigral orchestrator server implementation.
package main

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/keyauth"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/moogar0880/problems"

	"github.com/zigral/zigral/pkg/contextstore"
	"github.com/zigral/zigral/pkg/eventbus"
	"github.com/zigral/zigral/pkg/orchestrator"
	"github.com/zigral/zigral/pkg/ratelimit"
	"github.com/zigral/zigral/pkg/registry"
	"github.com/zigral/zigral/pkg/updates"
	"github.com/zigral/zigral/pkg/web"
)

type API struct {
	logger       *slog.Logger
	store        contextstore.Store
	registry     *registry.Registry
	eventBus     eventbus.EventBus
	orchestrator *orchestrator.Orchestrator
	hub          *updates.Hub
	limiter      ratelimit.Limiter
	authToken    string
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store contextstore.Store,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	orch *orchestrator.Orchestrator,
	hub *updates.Hub,
	limiter ratelimit.Limiter,
	authToken string,
) *API {
	return &API{
		logger:       logger,
		store:        store,
		registry:     reg,
		eventBus:     eventBus,
		orchestrator: orch,
		hub:          hub,
		limiter:      limiter,
		authToken:    authToken,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.store, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Zigral Orchestrator")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Get("/ws/updates/:clientID", a.hub.Handler())

	// Everything below requires the bearer token. Health and the update
	// stream stay open: browsers cannot attach headers to WebSocket dials.
	app.Use(keyauth.New(keyauth.Config{
		Validator: func(_ fiber.Ctx, key string) (bool, error) {
			if key == a.authToken {
				return true, nil
			}

			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c fiber.Ctx, _ error) error {
			problem := problems.NewStatusProblem(401).
				WithInstance(c.Path()).
				WithType("unauthorized").
				WithDetail("Missing or invalid authentication token")

			return c.Status(fiber.StatusUnauthorized).JSON(problem)
		},
		Next: func(c fiber.Ctx) bool {
			path := c.Path()

			return path == "/" || path == "/health" || strings.HasPrefix(path, "/ws/") ||
				strings.HasPrefix(path, "/livez") || strings.HasPrefix(path, "/readyz")
		},
	}))

	command := app.Group("/command", web.RateLimitMiddleware(a.limiter, a.logger))
	command.Post("/", handlers.ExecuteCommand)

	contexts := app.Group("/context")
	contexts.Post("/", handlers.CreateContext)
	contexts.Get("/:jobID", handlers.GetContext)
	contexts.Put("/:jobID", handlers.UpdateContext)
	contexts.Delete("/:jobID", handlers.DeleteContext)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
