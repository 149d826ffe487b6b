// Package rewrite implements the third pipeline stage: adapting the draft
// into per-platform variants.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers/llm"
	"github.com/contentline/contentline/pkg/stages"
)

type Executor struct {
	llm *llm.Client
}

func NewExecutor(client *llm.Client) *Executor {
	return &Executor{llm: client}
}

func (e *Executor) Kind() models.StepKind {
	return models.StepRewrite
}

// Execute produces one variant per target platform, sequentially. A
// per-platform provider failure substitutes a generated fallback variant and
// is recorded in the errors list; it does not fail the stage as long as the
// rewrite verifier is satisfied for every required platform.
func (e *Executor) Execute(ctx context.Context, bundle *models.Bundle, logger *slog.Logger) (string, error) {
	if bundle.Draft == nil {
		return "", models.NewStageError(models.CodeValidationError, "rewrite requires a completed draft")
	}

	result := &models.RewriteResult{
		Variants: make(map[string]models.PlatformVariant, len(bundle.Options.Platforms)),
		Errors:   []string{},
	}

	providerName := "fallback"

	for _, platform := range bundle.Options.Platforms {
		if e.llm != nil && e.llm.Configured() {
			variant, err := e.llm.Rewrite(ctx, llm.RewriteRequest{
				Platform: platform,
				Content:  bundle.Draft.Content,
				Tone:     bundle.Options.Tone,
			})
			if err == nil {
				result.Variants[platform] = *variant
				providerName = "llm"

				continue
			}

			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", platform, err))
			logger.WarnContext(ctx, "Rewrite failed for platform, using fallback variant",
				"platform", platform, "error", err)
		}

		result.Variants[platform] = fallbackVariant(platform, bundle)
	}

	bundle.Rewrite = result

	return providerName, nil
}

// fallbackVariant derives a platform variant from the draft and research
// titles. It satisfies the rewrite verifier (non-empty body, at least one
// title) by construction.
func fallbackVariant(platform string, bundle *models.Bundle) models.PlatformVariant {
	titles := []string{fmt.Sprintf("[%s] %s", platform, bundle.Topic)}
	if bundle.Research != nil {
		for _, title := range bundle.Research.Insight.RecommendedTitles {
			titles = append(titles, title)

			if len(titles) == 3 {
				break
			}
		}
	}

	body := fmt.Sprintf("%s\n\n%s",
		stages.Truncate(strings.TrimSpace(bundle.Draft.Content), platformBodyLimit(platform)),
		"Adapted for "+platform+".")

	return models.PlatformVariant{
		TitleCandidates: titles,
		Body:            body,
		Hashtags:        stages.Hashtags(bundle.Topic, 4),
	}
}

// platformBodyLimit reflects each platform's practical post length.
func platformBodyLimit(platform string) int {
	switch platform {
	case "WEIBO":
		return 500
	case "XIAOHONGSHU":
		return 1000
	default:
		return 2000
	}
}
