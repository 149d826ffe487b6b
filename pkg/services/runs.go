package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/registry"
	"github.com/contentline/contentline/pkg/runner"
	"github.com/contentline/contentline/pkg/tasks"
)

// StaleAfter is the quiet period after which a RUNNING task is presumed
// orphaned: a live run patches the registry on every step transition, so a
// run that has been silent this long has lost its process.
const StaleAfter = 3 * time.Minute

// Runs is the entry point service for submitting, resuming and inspecting
// workflow runs.
type Runs struct {
	runner   *runner.Runner
	tasks    tasks.Registry
	stages   *registry.Registry
	validate *validator.Validate
	logger   *slog.Logger

	now func() time.Time
}

// NewRuns creates the runs service.
func NewRuns(run *runner.Runner, taskRegistry tasks.Registry, stages *registry.Registry, logger *slog.Logger) *Runs {
	return &Runs{
		runner:   run,
		tasks:    taskRegistry,
		stages:   stages,
		validate: validator.New(),
		logger:   logger.With("module", "runs_service"),
		now:      time.Now,
	}
}

// Submit starts a run or resumes a failed one, blocking until the run
// reaches a terminal state. Resubmitting an idempotency key whose task still
// exists behaves like a resume of that task.
func (s *Runs) Submit(ctx context.Context, req models.RunRequest) (*runner.Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError("Submit", "VALIDATION_ERROR", err.Error(), ErrInvalidRequest)
	}

	taskID := runner.ResolveTaskID(req)

	existing := s.tasks.Get(ctx, taskID)
	if existing != nil {
		if existing.Status == models.TaskStatusRunning && !s.isStale(existing) {
			return nil, ErrRunInProgress
		}

		if req.ProjectID != "" && existing.ProjectID != "" && existing.ProjectID != req.ProjectID {
			return nil, ErrResumeTargetMismatch
		}

		// An idempotency-key hit on a finished or stale task resumes it;
		// completed runs then short-circuit to the cached result.
		if req.ResumeTaskID == "" {
			req.ResumeTaskID = taskID
		}
	}

	s.tasks.Upsert(ctx, taskID, models.TaskPatch{
		Kind:           models.TaskKindWorkflow,
		Status:         models.TaskStatusRunning,
		ProjectID:      req.ProjectID,
		TraceID:        req.TraceID,
		IdempotencyKey: req.IdempotencyKey,
	})

	result, err := s.runner.Execute(ctx, taskID, req)
	if err != nil {
		if errors.Is(err, runner.ErrInvalidRequest) {
			return nil, NewValidationError("Submit", "VALIDATION_ERROR", err.Error(), ErrProjectIDRequired)
		}

		return nil, err
	}

	s.finalize(ctx, taskID, result)

	return result, nil
}

// finalize writes the terminal snapshot: completion percentage plus the
// COMPLETED/FAILED status and, on failure, the structured error.
func (s *Runs) finalize(ctx context.Context, taskID string, result *runner.Result) {
	progress := 0
	if len(result.Steps) > 0 {
		progress = result.CompletedSteps() * 100 / len(result.Steps)
	}

	patch := models.TaskPatch{
		ProjectID: result.Bundle.ProjectID,
		Progress:  &progress,
		Payload:   result.Payload().ToMap(),
	}

	if result.Status == models.TaskStatusCompleted {
		s.tasks.Complete(ctx, taskID, patch)

		return
	}

	s.tasks.Fail(ctx, taskID, result.Error, patch)
}

// Status returns the current snapshot for a task.
func (s *Runs) Status(ctx context.Context, taskID string) (*models.TaskSnapshot, error) {
	snapshot := s.tasks.Get(ctx, taskID)
	if snapshot == nil {
		return nil, ErrTaskNotFound
	}

	return snapshot, nil
}

// RecoveryCandidate describes an interrupted or failed run that a caller may
// resume by resubmitting with its task id.
type RecoveryCandidate struct {
	TaskID      string            `json:"task_id"`
	ProjectID   string            `json:"project_id,omitempty"`
	Status      models.TaskStatus `json:"status"`
	Progress    int               `json:"progress"`
	FailedStep  models.StepKind   `json:"failed_step,omitempty"`
	Recoverable bool              `json:"recoverable"`
	Stale       bool              `json:"stale"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Error       *models.TaskError `json:"error,omitempty"`
}

// Recover lists FAILED and interrupted RUNNING workflow tasks, most recent
// first. RUNNING tasks are only reported once they pass the staleness
// threshold; fresh ones are presumed still attached to a live process.
func (s *Runs) Recover(ctx context.Context, projectID string, limit int) []RecoveryCandidate {
	snapshots := s.tasks.List(ctx, models.TaskFilter{
		Kind:      models.TaskKindWorkflow,
		Status:    []models.TaskStatus{models.TaskStatusRunning, models.TaskStatusFailed},
		ProjectID: projectID,
		Limit:     limit,
	})

	candidates := make([]RecoveryCandidate, 0, len(snapshots))

	for _, snapshot := range snapshots {
		stale := s.isStale(snapshot)

		if snapshot.Status == models.TaskStatusRunning && !stale {
			continue
		}

		candidate := RecoveryCandidate{
			TaskID:      snapshot.TaskID,
			ProjectID:   snapshot.ProjectID,
			Status:      snapshot.Status,
			Progress:    snapshot.Progress,
			Recoverable: stale,
			Stale:       stale,
			UpdatedAt:   snapshot.UpdatedAt,
			Error:       snapshot.Error,
		}

		if payload, err := models.DecodeRunPayload(snapshot.Payload); err == nil {
			candidate.FailedStep = payload.FailedStep
			candidate.Recoverable = payload.Recoverable || stale
		}

		candidates = append(candidates, candidate)
	}

	return candidates
}

// List returns workflow task snapshots, optionally filtered by project and
// status, most recently updated first.
func (s *Runs) List(ctx context.Context, projectID string, statuses []models.TaskStatus, limit int) []*models.TaskSnapshot {
	return s.tasks.List(ctx, models.TaskFilter{
		Kind:      models.TaskKindWorkflow,
		Status:    statuses,
		ProjectID: projectID,
		Limit:     limit,
	})
}

// isStale reports whether a RUNNING task has been quiet past the threshold.
// A run that died before persisting its first step (progress still near
// zero, no update since creation) qualifies like any other.
func (s *Runs) isStale(snapshot *models.TaskSnapshot) bool {
	if snapshot.Status != models.TaskStatusRunning {
		return false
	}

	return s.now().Sub(snapshot.UpdatedAt) >= StaleAfter
}

// HealthCheck aggregates registry and stage health.
func (s *Runs) HealthCheck(ctx context.Context) (string, bool) {
	if message, ok := s.tasks.HealthCheck(ctx); !ok {
		return "Task registry is unhealthy: " + message, false
	}

	if s.stages != nil {
		if message, ok := s.stages.HealthCheck(); !ok {
			return "Stage registry is unhealthy: " + message, false
		}
	}

	return "Service is healthy", true
}
