package web_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
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
	"github.com/contentline/contentline/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.Runs) {
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
	runsService := services.NewRuns(run, taskRegistry, reg, logger)

	handlers := web.NewAPIHandlers(runsService, reg)

	app := fiber.New()

	r := app.Group("/runs")
	r.Post("/", handlers.SubmitRun)
	r.Get("/", handlers.ListRuns)
	r.Get("/:id", handlers.GetRun)
	r.Get("/:id/report", handlers.GetRunReport)

	app.Get("/health", handlers.HealthCheck)

	return app, runsService
}

func testConfig() fiber.TestConfig {
	return fiber.TestConfig{Timeout: 30 * time.Second}
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))

	return envelope
}

func TestSubmitRunCompletes(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	payload := `{"project_id":"p1","topic":"Urban gardening","generate_asset":false}`
	req := httptest.NewRequest(http.MethodPost, "/runs/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, true, envelope["ok"])
	require.NotNil(t, envelope["meta"])

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(models.TaskStatusCompleted), data["status"])
	assert.NotEmpty(t, data["task_id"])
}

func TestSubmitRunInvalidJSON(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/runs/", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitRunMissingProject(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/runs/", strings.NewReader(`{"topic":"no project"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitRunStageFailure(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	// Whitespace topic fails the research stage. The exchange itself
	// succeeded, so the envelope stays ok=true and the failure lives in the
	// payload: data.status=FAILED plus the structured error and resume handle.
	req := httptest.NewRequest(http.MethodPost, "/runs/", strings.NewReader(`{"project_id":"p1","topic":"  "}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, true, envelope["ok"])
	assert.Nil(t, envelope["error"])

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(models.TaskStatusFailed), data["status"])
	assert.Equal(t, string(models.StepResearch), data["failed_step"])
	assert.Equal(t, true, data["recoverable"])
	assert.NotEmpty(t, data["task_id"])

	errBody, ok := data["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(models.CodeValidationError), errBody["code"])
	assert.Equal(t, false, errBody["retriable"])
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	app, runsService := setupTestApp(t)

	result, err := runsService.Submit(t.Context(), models.RunRequest{ProjectID: "p1", Topic: "Topic"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+result.TaskID, nil)
	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, result.TaskID, data["task_id"])
	assert.Equal(t, string(models.TaskStatusCompleted), data["status"])
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil)
	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRunsRecoverable(t *testing.T) {
	t.Parallel()

	app, runsService := setupTestApp(t)

	failed, err := runsService.Submit(t.Context(), models.RunRequest{ProjectID: "p1", Topic: " "})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, failed.Status)

	req := httptest.NewRequest(http.MethodGet, "/runs/?recoverable=true&project_id=p1", nil)
	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)

	candidates, ok := data["candidates"].([]any)
	require.True(t, ok)
	require.Len(t, candidates, 1)

	candidate, ok := candidates[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, failed.TaskID, candidate["task_id"])
	assert.Equal(t, true, candidate["recoverable"])
}

func TestGetRunReportMarkdown(t *testing.T) {
	t.Parallel()

	app, runsService := setupTestApp(t)

	result, err := runsService.Submit(t.Context(), models.RunRequest{ProjectID: "p1", Topic: "Topic"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+result.TaskID+"/report", nil)
	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "# Run Report: "+result.TaskID)
}

func TestGetRunReportBadFormat(t *testing.T) {
	t.Parallel()

	app, runsService := setupTestApp(t)

	result, err := runsService.Submit(t.Context(), models.RunRequest{ProjectID: "p1", Topic: "Topic"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+result.TaskID+"/report?format=yaml", nil)
	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, testConfig())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}
