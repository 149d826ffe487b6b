// Package main provides the Contentline API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/contentline/contentline/pkg/eventbus"
	"github.com/contentline/contentline/pkg/registry"
	"github.com/contentline/contentline/pkg/runner"
	"github.com/contentline/contentline/pkg/services"
	"github.com/contentline/contentline/pkg/tasks"
	"github.com/contentline/contentline/pkg/web"
)

type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	tasks    tasks.Registry
	eventBus eventbus.EventBus
	tracer   trace.Tracer
}

func NewAPI(
	logger *slog.Logger,
	stageRegistry *registry.Registry,
	taskRegistry tasks.Registry,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:   logger,
		registry: stageRegistry,
		tasks:    taskRegistry,
		eventBus: eventBus,
		tracer:   tracer,
	}
}

func (a *API) App() *fiber.App {
	run := runner.NewRunner(a.registry, a.tasks, a.eventBus, a.tracer, a.logger)
	runsService := services.NewRuns(run, a.tasks, a.registry, a.logger)

	handlers := web.NewAPIHandlers(runsService, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Contentline API")
	})

	r := app.Group("/runs")
	r.Post("/", handlers.SubmitRun)
	r.Get("/", handlers.ListRuns)
	r.Get("/:id", handlers.GetRun)
	r.Get("/:id/report", handlers.GetRunReport)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
