package runner

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/contentline/contentline/pkg/models"
)

// resumePayloadSchema guards the persisted run payload before resume. A
// snapshot that fails this check is treated as non-resumable rather than
// letting a corrupt payload crash mid-run.
const resumePayloadSchema = `{
	"type": "object",
	"required": ["steps", "bundle", "status"],
	"properties": {
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["step", "status"],
				"properties": {
					"step":   {"type": "string"},
					"status": {"type": "string", "enum": ["PENDING", "RUNNING", "COMPLETED", "FAILED", "SKIPPED"]}
				}
			}
		},
		"bundle": {
			"type": "object",
			"required": ["project_id", "topic", "options"]
		},
		"status":      {"type": "string"},
		"failed_step": {"type": "string"},
		"recoverable": {"type": "boolean"}
	}
}`

// loadResumePayload fetches the task snapshot and decodes its run payload.
// Returns nil when the task is missing, expired, or its payload does not
// validate; the caller then falls back to a fresh run.
func (r *Runner) loadResumePayload(ctx context.Context, taskID string, logger *slog.Logger) *models.RunPayload {
	snapshot := r.tasks.Get(ctx, taskID)
	if snapshot == nil || len(snapshot.Payload) == 0 {
		return nil
	}

	raw, err := json.Marshal(snapshot.Payload)
	if err != nil {
		logger.WarnContext(ctx, "Resume payload is not serializable", "error", err)

		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(resumePayloadSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		logger.WarnContext(ctx, "Resume payload schema check failed", "error", err)

		return nil
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			logger.WarnContext(ctx, "Resume payload is invalid", "field", desc.Field(), "detail", desc.Description())
		}

		return nil
	}

	payload, err := models.DecodeRunPayload(snapshot.Payload)
	if err != nil {
		logger.WarnContext(ctx, "Resume payload decode failed", "error", err)

		return nil
	}

	if !stepsWellFormed(payload.Steps) {
		logger.WarnContext(ctx, "Resume payload step log does not match the pipeline order")

		return nil
	}

	return payload
}

// stepsWellFormed checks that the persisted step log covers the full
// pipeline in canonical order. Payloads written by older or foreign writers
// that reorder or drop steps are rejected.
func stepsWellFormed(steps []models.StepLog) bool {
	order := models.StepOrder()
	if len(steps) != len(order) {
		return false
	}

	for i, step := range steps {
		if step.Step != order[i] {
			return false
		}
	}

	return true
}
