// Package web provides the HTTP API: submit or resume runs, poll status,
// discover recovery candidates and fetch run reports.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/registry"
	"github.com/contentline/contentline/pkg/services"
)

const defaultListLimit = 20

type APIHandlers struct {
	runs     *services.Runs
	registry *registry.Registry
}

func NewAPIHandlers(runs *services.Runs, registry *registry.Registry) *APIHandlers {
	return &APIHandlers{
		runs:     runs,
		registry: registry,
	}
}

// SubmitRun starts or resumes a run and blocks until it reaches a terminal
// state. A run that fails at a stage is still a successful HTTP exchange:
// the envelope stays ok=true and the failure travels in the payload as
// data.status=FAILED with the structured error and the resume handle.
// ok=false is reserved for requests that never reached the pipeline.
func (h *APIHandlers) SubmitRun(c fiber.Ctx) error {
	started := time.Now()

	var req models.RunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.runs.Submit(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, http.StatusOK, result, started)
}

// GetRun returns the registry snapshot for a task.
func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	started := time.Now()

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Task ID is required")
	}

	snapshot, err := h.runs.Status(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respond(c, http.StatusOK, snapshot, started)
}

// ListRuns lists workflow tasks. With recoverable=true it returns only
// resumable candidates: FAILED runs and RUNNING runs gone stale.
func (h *APIHandlers) ListRuns(c fiber.Ctx) error {
	started := time.Now()

	projectID := c.Query("project_id")

	limit := defaultListLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	if recoverableStr := c.Query("recoverable"); recoverableStr != "" {
		recoverable, err := strconv.ParseBool(recoverableStr)
		if err != nil {
			return badRequest(c, "Invalid recoverable parameter")
		}

		if recoverable {
			candidates := h.runs.Recover(c.Context(), projectID, limit)

			return respond(c, http.StatusOK, fiber.Map{"candidates": candidates}, started)
		}
	}

	var statuses []models.TaskStatus
	if statusStr := c.Query("status"); statusStr != "" {
		statuses = append(statuses, models.TaskStatus(statusStr))
	}

	snapshots := h.runs.List(c.Context(), projectID, statuses, limit)

	return respond(c, http.StatusOK, fiber.Map{"runs": snapshots}, started)
}

// GetRunReport renders a run report. Markdown is the default; json returns
// the structured report document.
func (h *APIHandlers) GetRunReport(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Task ID is required")
	}

	format := services.ReportFormat(c.Query("format", string(services.ReportFormatMarkdown)))

	content, err := h.runs.RenderReport(c.Context(), id, format)
	if err != nil {
		return handleServiceError(c, err)
	}

	if format == services.ReportFormatJSON {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	} else {
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	}

	return c.SendString(content)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	serviceCheck, svcOk := h.runs.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Contentline API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && svcOk {
		status = "healthy"
		message = "Contentline API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"stages":  registryCheck,
			"service": serviceCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
