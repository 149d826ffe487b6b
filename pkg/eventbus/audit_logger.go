package eventbus

import (
	"context"
	"log/slog"

	"github.com/contentline/contentline/pkg/events"
)

// AuditLogger consumes the run lifecycle topic and writes one structured log
// line per event. It is the default bus consumer: with the in-process
// channel it gives the API server a live audit trail, with Kafka it doubles
// as a reference consumer for external telemetry pipelines.
type AuditLogger struct {
	bus    EventBus
	logger *slog.Logger
}

func NewAuditLogger(bus EventBus, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		bus:    bus,
		logger: logger.With("module", "audit"),
	}
}

// Start registers a handler for every lifecycle event type and begins
// consuming. It returns once the subscription is established; delivery runs
// on the bus's goroutine.
func (a *AuditLogger) Start(ctx context.Context) error {
	for _, eventType := range []events.EventType{
		events.RunStartedEvent,
		events.RunCompletedEvent,
		events.RunFailedEvent,
		events.StepStartedEvent,
		events.StepCompletedEvent,
		events.StepFailedEvent,
	} {
		if err := a.bus.Handle(eventType, a.handleEvent); err != nil {
			return err
		}
	}

	return a.bus.Subscribe(ctx)
}

func (a *AuditLogger) handleEvent(ctx context.Context, event any) error {
	switch e := event.(type) {
	case *events.RunStarted:
		a.logger.InfoContext(ctx, "Run started",
			"task_id", e.TaskID, "project_id", e.ProjectID, "topic", e.Topic, "resumed", e.Resumed)
	case *events.RunCompleted:
		a.logger.InfoContext(ctx, "Run completed",
			"task_id", e.TaskID, "project_id", e.ProjectID, "duration_ms", e.DurationMs, "step_count", e.StepCount)
	case *events.RunFailed:
		a.logger.WarnContext(ctx, "Run failed",
			"task_id", e.TaskID, "project_id", e.ProjectID, "failed_step", e.FailedStep,
			"error_code", e.ErrorCode, "recoverable", e.Recoverable)
	case *events.StepStarted:
		a.logger.InfoContext(ctx, "Step started",
			"task_id", e.TaskID, "step", e.Step)
	case *events.StepCompleted:
		a.logger.InfoContext(ctx, "Step completed",
			"task_id", e.TaskID, "step", e.Step, "provider", e.Provider, "duration_ms", e.DurationMs)
	case *events.StepFailed:
		a.logger.WarnContext(ctx, "Step failed",
			"task_id", e.TaskID, "step", e.Step, "error_code", e.ErrorCode, "error", e.Error)
	default:
		a.logger.DebugContext(ctx, "Ignoring unknown event")
	}

	return nil
}
