// Package assets implements the optional fourth pipeline stage: cover image
// generation.
package assets

import (
	"context"
	"log/slog"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers/image"
	"github.com/contentline/contentline/pkg/stages"
)

type Executor struct {
	image *image.Client
}

func NewExecutor(client *image.Client) *Executor {
	return &Executor{image: client}
}

func (e *Executor) Kind() models.StepKind {
	return models.StepAssets
}

// Execute generates a cover image, or records the skip sentinel when asset
// generation is disabled by run options. A provider failure substitutes a
// placeholder URL, which still satisfies the asset verifier: the check is
// about shape, not provenance.
func (e *Executor) Execute(ctx context.Context, bundle *models.Bundle, logger *slog.Logger) (string, error) {
	if !bundle.Options.GenerateAsset {
		bundle.Assets = &models.AssetResult{
			ImageURL: "",
			Provider: models.SkippedProvider,
			Note:     "asset generation disabled by run options",
		}

		return models.SkippedProvider, nil
	}

	prompt := imagePrompt(bundle)

	if e.image != nil && e.image.Configured() {
		url, err := e.image.Generate(ctx, prompt)
		if err == nil {
			bundle.Assets = &models.AssetResult{ImageURL: url, Provider: "image"}

			return "image", nil
		}

		logger.WarnContext(ctx, "Image generation failed, using placeholder", "error", err)

		bundle.Assets = &models.AssetResult{
			ImageURL: placeholderURL(bundle.Topic),
			Provider: "placeholder",
			Note:     "image provider failed: " + err.Error(),
		}

		return "placeholder", nil
	}

	bundle.Assets = &models.AssetResult{
		ImageURL: placeholderURL(bundle.Topic),
		Provider: "placeholder",
		Note:     "image provider not configured",
	}

	return "placeholder", nil
}

func imagePrompt(bundle *models.Bundle) string {
	prompt := "Cover illustration for an article about " + bundle.Topic
	if bundle.Research != nil && bundle.Research.Insight.Summary != "" {
		prompt += ". Context: " + stages.Truncate(bundle.Research.Insight.Summary, 200)
	}

	return prompt
}

func placeholderURL(topic string) string {
	return "https://assets.contentline.local/placeholder/" + stages.Slug(topic) + ".png"
}
