// Package runner implements the step-indexed workflow state machine: six
// sequential stages, progress persisted after each step, verification of
// every stage output, and resume-from-failure using only a task id.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/contentline/contentline/pkg/eventbus"
	"github.com/contentline/contentline/pkg/events"
	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/otelhelper"
	"github.com/contentline/contentline/pkg/registry"
	"github.com/contentline/contentline/pkg/tasks"
	"github.com/contentline/contentline/pkg/verifier"
)

// ErrInvalidRequest is returned when a request neither resumes a task nor
// carries the fields needed to start a fresh run.
var ErrInvalidRequest = errors.New("invalid run request")

// StepTimeout returns the outbound deadline for a stage. LLM-backed stages
// get the longest budget; analytics is purely local aggregation.
func StepTimeout(kind models.StepKind) time.Duration {
	switch kind {
	case models.StepResearch, models.StepDraft, models.StepRewrite:
		return 180 * time.Second
	case models.StepAssets, models.StepPublish:
		return 120 * time.Second
	default:
		return 30 * time.Second
	}
}

// Result is the outcome of one Execute call. A FAILED result with
// Recoverable set invites exactly one remediation: resubmit with the same
// task id.
type Result struct {
	TaskID      string            `json:"task_id"`
	Status      models.TaskStatus `json:"status"`
	FailedStep  models.StepKind   `json:"failed_step,omitempty"`
	Recoverable bool              `json:"recoverable"`
	Error       *models.TaskError `json:"error,omitempty"`
	Steps       []models.StepLog  `json:"steps"`
	Bundle      *models.Bundle    `json:"bundle"`
}

// Payload converts the result into the persisted run payload shape.
func (r *Result) Payload() models.RunPayload {
	return models.RunPayload{
		Steps:       r.Steps,
		Bundle:      *r.Bundle,
		Status:      r.Status,
		FailedStep:  r.FailedStep,
		Recoverable: r.Recoverable,
	}
}

// CompletedSteps counts COMPLETED entries in the step log.
func (r *Result) CompletedSteps() int {
	count := 0

	for _, step := range r.Steps {
		if step.Status == models.StepStatusCompleted {
			count++
		}
	}

	return count
}

type Runner struct {
	registry *registry.Registry
	tasks    tasks.Registry
	bus      eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewRunner wires the runner to its collaborators. The event bus may be nil
// (telemetry disabled); a nil tracer falls back to a noop tracer.
func NewRunner(reg *registry.Registry, taskRegistry tasks.Registry, bus eventbus.EventBus, tracer trace.Tracer, logger *slog.Logger) *Runner {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Runner{
		registry: reg,
		tasks:    taskRegistry,
		bus:      bus,
		tracer:   tracer,
		logger:   logger.With("module", "workflow_runner"),
		now:      time.Now,
	}
}

// Execute drives one run to completion or to its first failure. The task id
// comes from ResolveTaskID; the caller must have upserted the task snapshot
// beforehand, mid-run registry writes here are best-effort patches.
func (r *Runner) Execute(ctx context.Context, taskID string, req models.RunRequest) (*Result, error) {
	logger := r.logger.With("task_id", taskID, "project_id", req.ProjectID)

	bundle, steps, resumed := r.restoreOrCreate(ctx, taskID, req, logger)
	if bundle == nil {
		return nil, fmt.Errorf("%w: project_id is required when not resuming", ErrInvalidRequest)
	}

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.run",
		attribute.String(otelhelper.TaskIDKey, taskID),
		attribute.String(otelhelper.ProjectIDKey, bundle.ProjectID),
		attribute.String(otelhelper.TopicKey, bundle.Topic),
		attribute.Bool(otelhelper.ResumedKey, resumed),
	)
	defer span.End()

	// A fully completed resume target is a no-op: return the cached result
	// instead of silently re-executing finished work.
	if resumed && allCompleted(steps) && bundle.FinalOutput != nil {
		logger.InfoContext(ctx, "Resume target already completed, returning cached result")

		return &Result{
			TaskID: taskID,
			Status: models.TaskStatusCompleted,
			Steps:  steps,
			Bundle: bundle,
		}, nil
	}

	runStart := r.now()
	r.publish(ctx, taskID, events.RunStarted{
		BaseEvent: r.baseEvent(events.RunStartedEvent, taskID, bundle, req.TraceID),
		Topic:     bundle.Topic,
		Resumed:   resumed,
	})

	logger.InfoContext(ctx, "Starting workflow run", "topic", bundle.Topic, "resumed", resumed)

	for i := range steps {
		step := &steps[i]

		// The resume contract: completed work is never redone, only the
		// failed or pending tail is retried.
		if step.Status == models.StepStatusCompleted {
			continue
		}

		if err := r.executeStep(ctx, taskID, req.TraceID, step, bundle, steps, logger); err != nil {
			code, detail := models.ParseStageError(err)

			result := &Result{
				TaskID:      taskID,
				Status:      models.TaskStatusFailed,
				FailedStep:  step.Step,
				Recoverable: true,
				Error:       &models.TaskError{Code: string(code), Message: detail, Retriable: code.Retriable()},
				Steps:       steps,
				Bundle:      bundle,
			}

			r.persistPayload(ctx, taskID, result)
			otelhelper.SetError(span, err, attribute.String(otelhelper.StepKey, string(step.Step)))
			r.publish(ctx, taskID, events.RunFailed{
				BaseEvent:   r.baseEvent(events.RunFailedEvent, taskID, bundle, req.TraceID),
				FailedStep:  step.Step,
				ErrorCode:   string(code),
				Error:       detail,
				Recoverable: true,
				DurationMs:  r.now().Sub(runStart).Milliseconds(),
			})

			logger.ErrorContext(ctx, "Workflow run failed",
				"failed_step", step.Step, "error_code", code, "error", detail)

			return result, nil
		}
	}

	bundle.FinalOutput = bundle.DeriveFinalOutput()

	result := &Result{
		TaskID:      taskID,
		Status:      models.TaskStatusCompleted,
		Recoverable: false,
		Steps:       steps,
		Bundle:      bundle,
	}

	r.persistPayload(ctx, taskID, result)
	r.publish(ctx, taskID, events.RunCompleted{
		BaseEvent:  r.baseEvent(events.RunCompletedEvent, taskID, bundle, req.TraceID),
		DurationMs: r.now().Sub(runStart).Milliseconds(),
		StepCount:  len(steps),
	})

	logger.InfoContext(ctx, "Workflow run completed", "duration_ms", r.now().Sub(runStart).Milliseconds())

	return result, nil
}

// executeStep runs a single stage: mark RUNNING, call the executor under its
// deadline, fold and verify, record timing. A returned error means the run
// halts at this step.
func (r *Runner) executeStep(ctx context.Context, taskID, traceID string, step *models.StepLog, bundle *models.Bundle, steps []models.StepLog, logger *slog.Logger) error {
	stepLogger := logger.With("step", step.Step)

	if step.Status == models.StepStatusFailed {
		step.RetryCount++
	}

	started := r.now()
	step.Status = models.StepStatusRunning
	step.StartedAt = &started
	step.EndedAt = nil
	step.DurationMs = 0
	step.Provider = ""
	step.ErrorCode = ""
	step.ErrorMessage = ""
	step.Validation = nil

	r.patchProgress(ctx, taskID, steps, bundle)
	r.publish(ctx, taskID, events.StepStarted{
		BaseEvent: r.baseEvent(events.StepStartedEvent, taskID, bundle, traceID),
		Step:      step.Step,
	})

	stepCtx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.step."+string(step.Step),
		attribute.String(otelhelper.TaskIDKey, taskID),
		attribute.String(otelhelper.StepKey, string(step.Step)),
	)
	defer span.End()

	stepCtx, cancel := context.WithTimeout(stepCtx, StepTimeout(step.Step))
	defer cancel()

	stepLogger.InfoContext(ctx, "Executing step")

	provider, err := r.runExecutor(stepCtx, step.Step, bundle, stepLogger)
	if err == nil {
		validation := verifier.ForStep(step.Step, bundle)
		step.Validation = &validation

		if !validation.OK {
			err = models.NewStageError(models.CodeValidationError,
				"verification failed: "+strings.Join(validation.FailedKeys(), ", "))
		}
	}

	ended := r.now()
	step.EndedAt = &ended
	step.DurationMs = ended.Sub(started).Milliseconds()
	step.Provider = provider

	if err != nil {
		code, detail := models.ParseStageError(err)
		step.Status = models.StepStatusFailed
		step.ErrorCode = string(code)
		step.ErrorMessage = detail

		otelhelper.SetError(span, err)
		r.publish(ctx, taskID, events.StepFailed{
			BaseEvent:  r.baseEvent(events.StepFailedEvent, taskID, bundle, traceID),
			Step:       step.Step,
			ErrorCode:  string(code),
			Error:      detail,
			DurationMs: step.DurationMs,
		})

		return err
	}

	step.Status = models.StepStatusCompleted

	r.patchProgress(ctx, taskID, steps, bundle)
	r.publish(ctx, taskID, events.StepCompleted{
		BaseEvent:  r.baseEvent(events.StepCompletedEvent, taskID, bundle, traceID),
		Step:       step.Step,
		Provider:   provider,
		DurationMs: step.DurationMs,
	})

	stepLogger.InfoContext(ctx, "Step completed", "provider", provider, "duration_ms", step.DurationMs)

	return nil
}

// runExecutor resolves and invokes the stage executor, normalizing deadline
// expiry to the timeout error code.
func (r *Runner) runExecutor(ctx context.Context, kind models.StepKind, bundle *models.Bundle, logger *slog.Logger) (string, error) {
	executor, err := r.registry.Executor(kind)
	if err != nil {
		return "", models.WrapStageError(models.CodeUnknownError, err.Error(), err)
	}

	provider, err := executor.Execute(ctx, bundle, logger)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		var stageErr *models.StageError
		if !errors.As(err, &stageErr) {
			err = models.WrapStageError(models.CodeProviderTimeout,
				fmt.Sprintf("stage %s exceeded its %s deadline", kind, StepTimeout(kind)), err)
		}
	}

	return provider, err
}

// restoreOrCreate builds the effective bundle and step log: persisted state
// is the base on resume, explicit request fields win over persisted ones.
func (r *Runner) restoreOrCreate(ctx context.Context, taskID string, req models.RunRequest, logger *slog.Logger) (*models.Bundle, []models.StepLog, bool) {
	if req.ResumeTaskID != "" {
		if payload := r.loadResumePayload(ctx, req.ResumeTaskID, logger); payload != nil {
			bundle := payload.Bundle

			if req.ProjectID != "" {
				bundle.ProjectID = req.ProjectID
			}

			if strings.TrimSpace(req.Topic) != "" {
				bundle.Topic = req.Topic
			}

			bundle.Options = req.Overlay(bundle.Options)

			return &bundle, payload.Steps, true
		}

		logger.WarnContext(ctx, "No resumable state for task, starting fresh", "resume_task_id", req.ResumeTaskID)
	}

	if req.ProjectID == "" {
		return nil, nil, false
	}

	bundle := models.NewBundle(req.ProjectID, req.Topic, req.Overlay(models.DefaultRunOptions()))

	return bundle, models.NewStepLogs(), false
}

// patchProgress writes the current payload and completion percentage to the
// task registry. Best-effort: the registry never fails, and an absent task
// (caller skipped the upsert) is a silent no-op.
func (r *Runner) patchProgress(ctx context.Context, taskID string, steps []models.StepLog, bundle *models.Bundle) {
	completed := 0

	for _, step := range steps {
		if step.Status == models.StepStatusCompleted {
			completed++
		}
	}

	progress := 0
	if len(steps) > 0 {
		progress = completed * 100 / len(steps)
	}

	payload := models.RunPayload{
		Steps:       steps,
		Bundle:      *bundle,
		Status:      models.TaskStatusRunning,
		Recoverable: false,
	}

	r.tasks.Patch(ctx, taskID, models.TaskPatch{
		Progress: &progress,
		Payload:  payload.ToMap(),
	})
}

// persistPayload stores a terminal run payload on the task snapshot.
func (r *Runner) persistPayload(ctx context.Context, taskID string, result *Result) {
	payload := result.Payload()
	r.tasks.Patch(ctx, taskID, models.TaskPatch{Payload: payload.ToMap()})
}

// publish emits a telemetry event without blocking the run. Failures are
// logged and otherwise ignored: the side channel never affects run outcome.
func (r *Runner) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.bus == nil {
		return
	}

	detached := context.WithoutCancel(ctx)

	go func() {
		if err := r.bus.Publish(detached, key, event); err != nil {
			r.logger.Warn("Telemetry publish failed", "event", event.GetType(), "error", err)
		}
	}()
}

func (r *Runner) baseEvent(eventType events.EventType, taskID string, bundle *models.Bundle, traceID string) events.BaseEvent {
	id := ""
	if r.bus != nil {
		id = r.bus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: r.now().UTC(),
		TaskID:    taskID,
		ProjectID: bundle.ProjectID,
		TraceID:   traceID,
	}
}

// ResolveTaskID prefers the resume id, then the idempotency key, then a
// fresh generated id.
func ResolveTaskID(req models.RunRequest) string {
	if req.ResumeTaskID != "" {
		return req.ResumeTaskID
	}

	if req.IdempotencyKey != "" {
		return req.IdempotencyKey
	}

	return "run-" + uuid.New().String()[:8]
}

func allCompleted(steps []models.StepLog) bool {
	for _, step := range steps {
		if step.Status != models.StepStatusCompleted {
			return false
		}
	}

	return len(steps) > 0
}
