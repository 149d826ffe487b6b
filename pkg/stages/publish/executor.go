// Package publish implements the optional fifth pipeline stage: pushing the
// finished content to the CMS.
package publish

import (
	"context"
	"log/slog"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers/wordpress"
	"github.com/contentline/contentline/pkg/stages"
)

type Executor struct {
	wordpress *wordpress.Client
}

func NewExecutor(client *wordpress.Client) *Executor {
	return &Executor{wordpress: client}
}

func (e *Executor) Kind() models.StepKind {
	return models.StepPublish
}

// Execute publishes to the CMS, or records the skip sentinel when publishing
// is disabled. An unconfigured CMS falls back to a local draft export; a
// real CMS error (auth rejection included) propagates and halts the run.
func (e *Executor) Execute(ctx context.Context, bundle *models.Bundle, logger *slog.Logger) (string, error) {
	if !bundle.Options.PublishToWordpress {
		bundle.Publish = &models.PublishResult{
			Mode:    models.SkippedProvider,
			Status:  models.SkippedProvider,
			Message: "publishing disabled by run options",
		}

		return models.SkippedProvider, nil
	}

	if bundle.Draft == nil {
		return "", models.NewStageError(models.CodeValidationError, "publish requires a completed draft")
	}

	if e.wordpress != nil && e.wordpress.Configured() {
		result, err := e.wordpress.CreatePost(ctx, wordpress.Post{
			Title:         postTitle(bundle),
			Content:       bundle.Draft.Content,
			FeaturedImage: featuredImage(bundle),
		})
		if err != nil {
			return "", err
		}

		bundle.Publish = result

		return "wordpress", nil
	}

	// Local draft export keeps credential-less runs publishable end to end.
	slug := stages.Slug(bundle.Topic)
	bundle.Publish = &models.PublishResult{
		Mode:    "local",
		PostID:  "local-" + slug,
		EditURL: "https://cms.contentline.local/drafts/" + slug,
		Status:  "draft",
		Message: "wordpress not configured, draft exported locally",
	}

	return "local", nil
}

func postTitle(bundle *models.Bundle) string {
	if bundle.Research != nil && len(bundle.Research.Insight.RecommendedTitles) > 0 {
		return bundle.Research.Insight.RecommendedTitles[0]
	}

	return bundle.Topic
}

func featuredImage(bundle *models.Bundle) string {
	if bundle.Assets != nil {
		return bundle.Assets.ImageURL
	}

	return ""
}
