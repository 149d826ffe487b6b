package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contentline/contentline/pkg/eventbus"
	"github.com/contentline/contentline/pkg/events"
	"github.com/contentline/contentline/pkg/mocks"
	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/registry"
	"github.com/contentline/contentline/pkg/runner"
	"github.com/contentline/contentline/pkg/stages/analytics"
	"github.com/contentline/contentline/pkg/stages/assets"
	"github.com/contentline/contentline/pkg/stages/draft"
	"github.com/contentline/contentline/pkg/stages/publish"
	"github.com/contentline/contentline/pkg/stages/research"
	"github.com/contentline/contentline/pkg/stages/rewrite"
	"github.com/contentline/contentline/pkg/tasks/memory"
)

func TestExecutePublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	logger := testLogger()

	reg := registry.NewRegistry(logger)
	reg.Register(research.NewExecutor(nil))
	reg.Register(draft.NewExecutor(nil))
	reg.Register(rewrite.NewExecutor(nil))
	reg.Register(assets.NewExecutor(nil))
	reg.Register(publish.NewExecutor(nil))
	reg.Register(analytics.NewExecutor())

	published := make(chan eventbus.Event, 32)

	bus := &mocks.MockEventBus{}
	bus.On("GenerateID").Return("evt-1")
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			event, _ := args.Get(2).(eventbus.Event)
			published <- event
		}).
		Return(nil)

	taskRegistry := memory.NewRegistry()
	run := runner.NewRunner(reg, taskRegistry, bus, nil, logger)

	ctx := context.Background()
	req := models.RunRequest{ProjectID: "p1", Topic: "Community radio"}

	taskID := runner.ResolveTaskID(req)
	taskRegistry.Upsert(ctx, taskID, models.TaskPatch{Kind: models.TaskKindWorkflow})

	result, err := run.Execute(ctx, taskID, req)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, result.Status)

	// run.started + 6x(step.started, step.completed) + run.completed.
	types := make(map[events.EventType]int)

	for range 14 {
		select {
		case event := <-published:
			types[event.GetType()]++
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for telemetry events, got %v", types)
		}
	}

	assert.Equal(t, 1, types[events.RunStartedEvent])
	assert.Equal(t, 6, types[events.StepStartedEvent])
	assert.Equal(t, 6, types[events.StepCompletedEvent])
	assert.Equal(t, 1, types[events.RunCompletedEvent])
}

func TestExecutePublishesFailureEvents(t *testing.T) {
	t.Parallel()

	logger := testLogger()

	reg := registry.NewRegistry(logger)
	reg.Register(research.NewExecutor(nil))
	reg.Register(draft.NewExecutor(nil))
	reg.Register(rewrite.NewExecutor(nil))
	reg.Register(assets.NewExecutor(nil))
	reg.Register(publish.NewExecutor(nil))
	reg.Register(analytics.NewExecutor())

	published := make(chan eventbus.Event, 8)

	bus := &mocks.MockEventBus{}
	bus.On("GenerateID").Return("evt-1")
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			event, _ := args.Get(2).(eventbus.Event)
			published <- event
		}).
		Return(nil)

	taskRegistry := memory.NewRegistry()
	run := runner.NewRunner(reg, taskRegistry, bus, nil, logger)

	ctx := context.Background()
	req := models.RunRequest{ProjectID: "p1", Topic: " "}

	taskID := runner.ResolveTaskID(req)
	taskRegistry.Upsert(ctx, taskID, models.TaskPatch{Kind: models.TaskKindWorkflow})

	result, err := run.Execute(ctx, taskID, req)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, result.Status)

	// run.started, step.started, step.failed, run.failed.
	var stepFailed *events.StepFailed

	var runFailed *events.RunFailed

	for range 4 {
		select {
		case event := <-published:
			switch typed := event.(type) {
			case events.StepFailed:
				stepFailed = &typed
			case events.RunFailed:
				runFailed = &typed
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for telemetry events")
		}
	}

	require.NotNil(t, stepFailed)
	assert.Equal(t, models.StepResearch, stepFailed.Step)
	assert.Equal(t, string(models.CodeValidationError), stepFailed.ErrorCode)

	require.NotNil(t, runFailed)
	assert.Equal(t, models.StepResearch, runFailed.FailedStep)
	assert.True(t, runFailed.Recoverable)
}
