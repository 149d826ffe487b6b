package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	pkgcmd "github.com/contentline/contentline/pkg/cmd"
	"github.com/contentline/contentline/pkg/eventbus"
	"github.com/contentline/contentline/pkg/log"
	"github.com/contentline/contentline/pkg/otelhelper"
)

const defaultPort = 9094

func main() {
	command := &cli.Command{
		Name:                  "contentline-api",
		Usage:                 "Run the content production pipeline API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "task-store-url",
				Usage:   "Task registry store URL (empty for in-memory, redis:// for Redis)",
				Sources: cli.EnvVars("TASK_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Telemetry event bus type (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "search-url",
				Usage:   "Research search provider base URL",
				Sources: cli.EnvVars("SEARCH_URL"),
			},
			&cli.StringFlag{
				Name:    "search-api-key",
				Usage:   "Research search provider API key",
				Sources: cli.EnvVars("SEARCH_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "llm-url",
				Usage:   "LLM provider base URL for draft and rewrite",
				Sources: cli.EnvVars("LLM_URL"),
			},
			&cli.StringFlag{
				Name:    "llm-api-key",
				Usage:   "LLM provider API key",
				Sources: cli.EnvVars("LLM_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "llm-model",
				Usage:   "LLM model identifier",
				Sources: cli.EnvVars("LLM_MODEL"),
			},
			&cli.StringFlag{
				Name:    "image-url",
				Usage:   "Image generation provider base URL",
				Sources: cli.EnvVars("IMAGE_URL"),
			},
			&cli.StringFlag{
				Name:    "image-api-key",
				Usage:   "Image generation provider API key",
				Sources: cli.EnvVars("IMAGE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "wordpress-url",
				Usage:   "WordPress site base URL",
				Sources: cli.EnvVars("WORDPRESS_URL"),
			},
			&cli.StringFlag{
				Name:    "wordpress-user",
				Usage:   "WordPress username",
				Sources: cli.EnvVars("WORDPRESS_USER"),
			},
			&cli.StringFlag{
				Name:    "wordpress-password",
				Usage:   "WordPress application password",
				Sources: cli.EnvVars("WORDPRESS_PASSWORD"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Contentline API")

			stageRegistry := pkgcmd.NewStageRegistry(providerConfig(command), logger)

			taskRegistry := pkgcmd.NewTaskRegistry(command.String("task-store-url"), logger)
			defer func() {
				if err := taskRegistry.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close task registry", "error", err)
				}
			}()

			eventBus := pkgcmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			audit := eventbus.NewAuditLogger(eventBus, logger)
			if err := audit.Start(ctx); err != nil {
				return err
			}

			var tracer trace.Tracer
			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "contentline-api")
				if err != nil {
					return err
				}
			}

			api := NewAPI(logger, stageRegistry, taskRegistry, eventBus, tracer)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func providerConfig(command *cli.Command) pkgcmd.ProviderConfig {
	return pkgcmd.ProviderConfig{
		SearchURL:         command.String("search-url"),
		SearchAPIKey:      command.String("search-api-key"),
		LLMURL:            command.String("llm-url"),
		LLMAPIKey:         command.String("llm-api-key"),
		LLMModel:          command.String("llm-model"),
		ImageURL:          command.String("image-url"),
		ImageAPIKey:       command.String("image-api-key"),
		WordpressURL:      command.String("wordpress-url"),
		WordpressUser:     command.String("wordpress-user"),
		WordpressPassword: command.String("wordpress-password"),
	}
}
