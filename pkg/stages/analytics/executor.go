// Package analytics implements the final pipeline stage: a lightweight
// summary aggregated from the bundle itself. It always runs and performs no
// outbound calls.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contentline/contentline/pkg/models"
)

type Executor struct {
	// now is swappable for tests.
	now func() time.Time
}

func NewExecutor() *Executor {
	return &Executor{now: time.Now}
}

func (e *Executor) Kind() models.StepKind {
	return models.StepAnalytics
}

func (e *Executor) Execute(_ context.Context, bundle *models.Bundle, _ *slog.Logger) (string, error) {
	if bundle.Draft == nil {
		return "", models.NewStageError(models.CodeValidationError, "analytics requires a completed draft")
	}

	result := &models.AnalyticsResult{
		WordCount:   len(strings.Fields(bundle.Draft.Content)),
		GeneratedAt: e.now().UTC(),
	}

	if bundle.Research != nil {
		result.SourceCount = len(bundle.Research.Sources)
	}

	if bundle.Rewrite != nil {
		result.PlatformCount = len(bundle.Rewrite.Variants)

		for _, variant := range bundle.Rewrite.Variants {
			result.HashtagCount += len(variant.Hashtags)
		}
	}

	publishStatus := "not published"
	if bundle.Publish != nil && bundle.Publish.Status != "" {
		publishStatus = bundle.Publish.Status
	}

	result.Summary = fmt.Sprintf(
		"%d-word draft on %q adapted for %d platform(s) from %d source(s); publish status: %s.",
		result.WordCount, bundle.Topic, result.PlatformCount, result.SourceCount, publishStatus)

	bundle.Analytics = result

	return "internal", nil
}
