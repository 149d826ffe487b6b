// Package main provides the one-shot Contentline CLI: run the pipeline for a
// topic and print the Markdown report.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	pkgcmd "github.com/contentline/contentline/pkg/cmd"
	"github.com/contentline/contentline/pkg/log"
	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/runner"
	"github.com/contentline/contentline/pkg/services"
)

func main() {
	command := &cli.Command{
		Name:                  "contentline",
		Usage:                 "Produce multi-platform content from a topic",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			runCommand(),
			tasksCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run the pipeline once and print the report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Usage:   "Project the run belongs to",
				Sources: cli.EnvVars("CONTENTLINE_PROJECT"),
			},
			&cli.StringFlag{
				Name:  "topic",
				Usage: "Topic to produce content for",
			},
			&cli.StringFlag{
				Name:  "resume",
				Usage: "Task ID of a failed run to resume",
			},
			&cli.StringSliceFlag{
				Name:  "platform",
				Usage: "Target platform code (repeatable)",
			},
			&cli.StringFlag{
				Name:  "tone",
				Usage: "Writing tone",
			},
			&cli.StringFlag{
				Name:  "length",
				Usage: "Draft length preset (short, medium, long)",
			},
			&cli.BoolFlag{
				Name:  "skip-asset",
				Usage: "Skip cover image generation",
			},
			&cli.BoolFlag{
				Name:  "publish",
				Usage: "Publish the result to WordPress",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format (markdown, json)",
				Value: "markdown",
			},
			&cli.StringFlag{
				Name:    "task-store-url",
				Usage:   "Task store URL (redis:// for a durable store, empty for in-memory)",
				Sources: cli.EnvVars("TASK_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "search-url",
				Sources: cli.EnvVars("SEARCH_URL"),
			},
			&cli.StringFlag{
				Name:    "search-api-key",
				Sources: cli.EnvVars("SEARCH_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "llm-url",
				Sources: cli.EnvVars("LLM_URL"),
			},
			&cli.StringFlag{
				Name:    "llm-api-key",
				Sources: cli.EnvVars("LLM_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "llm-model",
				Sources: cli.EnvVars("LLM_MODEL"),
			},
			&cli.StringFlag{
				Name:    "image-url",
				Sources: cli.EnvVars("IMAGE_URL"),
			},
			&cli.StringFlag{
				Name:    "image-api-key",
				Sources: cli.EnvVars("IMAGE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "wordpress-url",
				Sources: cli.EnvVars("WORDPRESS_URL"),
			},
			&cli.StringFlag{
				Name:    "wordpress-user",
				Sources: cli.EnvVars("WORDPRESS_USER"),
			},
			&cli.StringFlag{
				Name:    "wordpress-password",
				Sources: cli.EnvVars("WORDPRESS_PASSWORD"),
			},
		},
		Action: runAction,
	}
}

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"t"},
		Usage:   "List workflow task snapshots from the task store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Usage:   "Filter by project",
				Sources: cli.EnvVars("CONTENTLINE_PROJECT"),
			},
			&cli.StringSliceFlag{
				Name:  "status",
				Usage: "Filter by status (RUNNING, COMPLETED, FAILED; repeatable)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tasks to list",
				Value: 20,
			},
			&cli.StringFlag{
				Name:    "task-store-url",
				Usage:   "Task store URL (redis:// for a durable store)",
				Sources: cli.EnvVars("TASK_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: tasksAction,
	}
}

func tasksAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("cli")

	taskRegistry := pkgcmd.NewTaskRegistry(command.String("task-store-url"), logger)
	defer func() {
		if err := taskRegistry.Close(); err != nil {
			logger.Error("Failed to close task registry", "error", err)
		}
	}()

	statuses := make([]models.TaskStatus, 0, len(command.StringSlice("status")))
	for _, status := range command.StringSlice("status") {
		statuses = append(statuses, models.TaskStatus(strings.ToUpper(status)))
	}

	snapshots := taskRegistry.List(ctx, models.TaskFilter{
		Kind:      models.TaskKindWorkflow,
		Status:    statuses,
		ProjectID: command.String("project"),
		Limit:     command.Int("limit"),
	})

	if len(snapshots) == 0 {
		fmt.Println("No tasks found.")

		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "TASK ID\tPROJECT\tSTATUS\tPROGRESS\tUPDATED\tERROR")

	for _, snapshot := range snapshots {
		errMsg := ""
		if snapshot.Error != nil {
			errMsg = snapshot.Error.Code
		}

		fmt.Fprintf(writer, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			snapshot.TaskID,
			snapshot.ProjectID,
			snapshot.Status,
			snapshot.Progress,
			snapshot.UpdatedAt.Format(time.RFC3339),
			errMsg,
		)
	}

	return writer.Flush()
}

func runAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("cli")

	stageRegistry := pkgcmd.NewStageRegistry(pkgcmd.ProviderConfig{
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
	}, logger)

	taskRegistry := pkgcmd.NewTaskRegistry(command.String("task-store-url"), logger)
	defer func() {
		if err := taskRegistry.Close(); err != nil {
			logger.Error("Failed to close task registry", "error", err)
		}
	}()

	run := runner.NewRunner(stageRegistry, taskRegistry, nil, nil, logger)
	runsService := services.NewRuns(run, taskRegistry, stageRegistry, logger)

	req := models.RunRequest{
		ProjectID:    command.String("project"),
		Topic:        command.String("topic"),
		ResumeTaskID: command.String("resume"),
		Tone:         command.String("tone"),
		Length:       command.String("length"),
		Platforms:    command.StringSlice("platform"),
	}

	if command.IsSet("skip-asset") {
		generate := !command.Bool("skip-asset")
		req.GenerateAsset = &generate
	}

	if command.IsSet("publish") {
		publish := command.Bool("publish")
		req.PublishToWordpress = &publish
	}

	result, err := runsService.Submit(ctx, req)
	if err != nil {
		return err
	}

	report, err := runsService.RenderReport(ctx, result.TaskID, services.ReportFormat(command.String("format")))
	if err != nil {
		return err
	}

	fmt.Println(report)

	if result.Status == models.TaskStatusFailed {
		return fmt.Errorf("run %s failed at %s: %s (resume with --resume %s)",
			result.TaskID, result.FailedStep, result.Error.Message, result.TaskID)
	}

	return nil
}
