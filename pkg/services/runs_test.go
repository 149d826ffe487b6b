package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/registry"
	"github.com/contentline/contentline/pkg/runner"
	"github.com/contentline/contentline/pkg/services"
	"github.com/contentline/contentline/pkg/stages/analytics"
	"github.com/contentline/contentline/pkg/stages/assets"
	"github.com/contentline/contentline/pkg/stages/draft"
	"github.com/contentline/contentline/pkg/stages/publish"
	"github.com/contentline/contentline/pkg/stages/research"
	"github.com/contentline/contentline/pkg/stages/rewrite"
	"github.com/contentline/contentline/pkg/tasks/memory"
)

func newTestService(t *testing.T) (*services.Runs, *memory.Registry) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.NewRegistry(logger)
	reg.Register(research.NewExecutor(nil))
	reg.Register(draft.NewExecutor(nil))
	reg.Register(rewrite.NewExecutor(nil))
	reg.Register(assets.NewExecutor(nil))
	reg.Register(publish.NewExecutor(nil))
	reg.Register(analytics.NewExecutor())

	taskRegistry := memory.NewRegistry()
	run := runner.NewRunner(reg, taskRegistry, nil, nil, logger)

	return services.NewRuns(run, taskRegistry, reg, logger), taskRegistry
}

func TestSubmitHappyPath(t *testing.T) {
	t.Parallel()

	service, taskRegistry := newTestService(t)
	ctx := context.Background()

	result, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: "Solar balconies"})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusCompleted, result.Status)

	snapshot := taskRegistry.Get(ctx, result.TaskID)
	require.NotNil(t, snapshot)
	assert.Equal(t, models.TaskStatusCompleted, snapshot.Status)
	assert.Equal(t, 100, snapshot.Progress)
	assert.Equal(t, models.TaskKindWorkflow, snapshot.Kind)
	assert.Equal(t, "p1", snapshot.ProjectID)
	assert.NotNil(t, snapshot.EndedAt)
}

func TestSubmitRequiresProjectOrResume(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)

	_, err := service.Submit(context.Background(), models.RunRequest{Topic: "No project"})
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestSubmitFailureRecordsFailedTask(t *testing.T) {
	t.Parallel()

	service, taskRegistry := newTestService(t)
	ctx := context.Background()

	result, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: "  "})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusFailed, result.Status)
	assert.Equal(t, models.StepResearch, result.FailedStep)

	snapshot := taskRegistry.Get(ctx, result.TaskID)
	require.NotNil(t, snapshot)
	assert.Equal(t, models.TaskStatusFailed, snapshot.Status)
	require.NotNil(t, snapshot.Error)
	assert.Equal(t, string(models.CodeValidationError), snapshot.Error.Code)
	assert.Equal(t, 0, snapshot.Progress)
}

func TestSubmitIdempotencyKeyResumesCompleted(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)
	ctx := context.Background()

	req := models.RunRequest{ProjectID: "p1", Topic: "Compost programs", IdempotencyKey: "idem-1"}

	first, err := service.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "idem-1", first.TaskID)

	second, err := service.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, second.Status)
	assert.Equal(t, first.TaskID, second.TaskID)
	assert.Equal(t, first.Bundle.Topic, second.Bundle.Topic)
}

func TestSubmitConflictsWithLiveRun(t *testing.T) {
	t.Parallel()

	service, taskRegistry := newTestService(t)
	ctx := context.Background()

	taskRegistry.Upsert(ctx, "idem-busy", models.TaskPatch{
		Kind:      models.TaskKindWorkflow,
		Status:    models.TaskStatusRunning,
		ProjectID: "p1",
	})

	_, err := service.Submit(ctx, models.RunRequest{
		ProjectID:      "p1",
		Topic:          "Anything",
		IdempotencyKey: "idem-busy",
	})
	require.ErrorIs(t, err, services.ErrRunInProgress)
	assert.True(t, services.IsConflictError(err))
}

func TestSubmitRejectsForeignProjectResume(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)
	ctx := context.Background()

	first, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: "  "})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, first.Status)

	_, err = service.Submit(ctx, models.RunRequest{ProjectID: "p2", ResumeTaskID: first.TaskID})
	require.ErrorIs(t, err, services.ErrResumeTargetMismatch)
}

func TestFailedRunIsResumable(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)
	ctx := context.Background()

	failed, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: " "})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, failed.Status)

	resumed, err := service.Submit(ctx, models.RunRequest{
		ProjectID:    "p1",
		ResumeTaskID: failed.TaskID,
		Topic:        "Night trains",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, resumed.Status)
	assert.Equal(t, failed.TaskID, resumed.TaskID)
	assert.Equal(t, 1, resumed.Steps[0].RetryCount)
}

func TestStatusNotFound(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)

	_, err := service.Status(context.Background(), "missing")
	require.ErrorIs(t, err, services.ErrTaskNotFound)
	assert.True(t, services.IsNotFoundError(err))
}

func TestRecoverListsFailedAndStaleRuns(t *testing.T) {
	t.Parallel()

	service, taskRegistry := newTestService(t)
	ctx := context.Background()

	// A genuinely failed run.
	failed, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: " "})
	require.NoError(t, err)

	// A RUNNING task whose last write is older than the staleness threshold.
	past := time.Now().Add(-10 * time.Minute)
	taskRegistry.SetClock(func() time.Time { return past })
	taskRegistry.Upsert(ctx, "stale-run", models.TaskPatch{
		Kind:      models.TaskKindWorkflow,
		ProjectID: "p1",
	})
	taskRegistry.SetClock(time.Now)

	// A RUNNING task updated moments ago: presumed live, not recoverable.
	taskRegistry.Upsert(ctx, "live-run", models.TaskPatch{
		Kind:      models.TaskKindWorkflow,
		ProjectID: "p1",
	})

	candidates := service.Recover(ctx, "p1", 0)

	ids := make(map[string]services.RecoveryCandidate, len(candidates))
	for _, candidate := range candidates {
		ids[candidate.TaskID] = candidate
	}

	require.Contains(t, ids, failed.TaskID)
	assert.Equal(t, models.StepResearch, ids[failed.TaskID].FailedStep)
	assert.True(t, ids[failed.TaskID].Recoverable)

	require.Contains(t, ids, "stale-run")
	assert.True(t, ids["stale-run"].Stale)

	assert.NotContains(t, ids, "live-run")
}

func TestRenderReportMarkdown(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)
	ctx := context.Background()

	result, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: "City cycling"})
	require.NoError(t, err)

	report, err := service.RenderReport(ctx, result.TaskID, services.ReportFormatMarkdown)
	require.NoError(t, err)

	assert.Contains(t, report, "# Run Report: "+result.TaskID)
	assert.Contains(t, report, "City cycling")
	assert.Contains(t, report, "| research | COMPLETED |")
	assert.Contains(t, report, "## Platform Variants")
	assert.Contains(t, report, "### WEIBO")
}

func TestRenderReportJSON(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)
	ctx := context.Background()

	result, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: "City cycling"})
	require.NoError(t, err)

	raw, err := service.RenderReport(ctx, result.TaskID, services.ReportFormatJSON)
	require.NoError(t, err)

	var report services.Report
	require.NoError(t, json.Unmarshal([]byte(raw), &report))
	assert.Equal(t, result.TaskID, report.TaskID)
	assert.Equal(t, models.TaskStatusCompleted, report.Status)
	assert.Len(t, report.Steps, 6)
}

func TestRenderReportUnsupportedFormat(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)
	ctx := context.Background()

	result, err := service.Submit(ctx, models.RunRequest{ProjectID: "p1", Topic: "X topic"})
	require.NoError(t, err)

	_, err = service.RenderReport(ctx, result.TaskID, "yaml")
	require.ErrorIs(t, err, services.ErrUnsupportedFormat)
}

func TestReportNotReady(t *testing.T) {
	t.Parallel()

	service, taskRegistry := newTestService(t)
	ctx := context.Background()

	taskRegistry.Upsert(ctx, "bare", models.TaskPatch{Kind: models.TaskKindWorkflow})

	_, err := service.RenderReport(ctx, "bare", services.ReportFormatMarkdown)
	require.ErrorIs(t, err, services.ErrReportNotReady)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)

	message, ok := service.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.NotEmpty(t, message)
}
