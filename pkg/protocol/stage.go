// Package protocol defines the contracts between the workflow runner and
// the pluggable stage executors.
package protocol

import (
	"context"
	"log/slog"

	"github.com/contentline/contentline/pkg/models"
)

// StageExecutor runs one pipeline stage. Execute reads whatever upstream
// bundle fields it needs, performs the stage's outbound work, and writes the
// stage's sub-record into the bundle before returning. The returned provider
// label is recorded on the step log (models.SkippedProvider when the stage
// was bypassed by run options).
//
// An executor owns its internal fallback policy: a provider failure may be
// recovered once with deterministic synthetic content. Errors returned here
// halt the whole run.
type StageExecutor interface {
	Kind() models.StepKind
	Execute(ctx context.Context, bundle *models.Bundle, logger *slog.Logger) (provider string, err error)
}
