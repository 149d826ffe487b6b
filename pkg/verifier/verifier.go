// Package verifier gates pipeline advancement: stateless structural checks
// that decide whether a stage's output is usable enough to continue. Every
// function returns the full checklist, not just a boolean, so failures stay
// attributable to a specific field.
package verifier

import (
	"fmt"
	"strings"

	"github.com/contentline/contentline/pkg/models"
)

// MinDraftLength is the hard minimum that defines a usable draft.
const MinDraftLength = 200

func check(key string, passed bool, message string) models.ValidationCheck {
	return models.ValidationCheck{Key: key, Passed: passed, Message: message}
}

func result(checks ...models.ValidationCheck) models.ValidationResult {
	ok := true

	for _, c := range checks {
		if !c.Passed {
			ok = false

			break
		}
	}

	return models.ValidationResult{OK: ok, Checks: checks}
}

// Research passes iff at least one source exists, the insight summary is
// non-empty after trimming, and at least one recommended title exists.
func Research(sources []models.Source, insight models.Insight) models.ValidationResult {
	return result(
		check("research.sources", len(sources) >= 1, "at least one source is required"),
		check("research.insight.summary", strings.TrimSpace(insight.Summary) != "", "insight summary must be non-empty"),
		check("research.insight.titles", len(insight.RecommendedTitles) >= 1, "at least one recommended title is required"),
	)
}

// Draft passes iff the content is non-empty and its trimmed length reaches
// the minimum usable size.
func Draft(content string) models.ValidationResult {
	trimmed := strings.TrimSpace(content)

	return result(
		check("draft.content", trimmed != "", "draft content must be non-empty"),
		check("draft.length", len([]rune(trimmed)) >= MinDraftLength,
			fmt.Sprintf("draft must be at least %d characters", MinDraftLength)),
	)
}

// Rewrite passes iff at least one variant exists and every required platform
// has a non-empty body and at least one title candidate. Each platform
// contributes two independent checks so partial platform failure stays
// visible.
func Rewrite(variants map[string]models.PlatformVariant, requiredPlatforms []string) models.ValidationResult {
	checks := []models.ValidationCheck{
		check("rewrite.variants", len(variants) >= 1, "at least one platform variant is required"),
	}

	for _, platform := range requiredPlatforms {
		variant, ok := variants[platform]
		checks = append(checks,
			check("rewrite."+platform+".body", ok && strings.TrimSpace(variant.Body) != "",
				"platform body must be non-empty"),
			check("rewrite."+platform+".titles", ok && len(variant.TitleCandidates) >= 1,
				"platform needs at least one title candidate"),
		)
	}

	return result(checks...)
}

// Asset passes iff both the image URL and the provider are non-empty. A
// placeholder or fallback URL still counts: the check is about shape, not
// provenance.
func Asset(imageURL, provider string) models.ValidationResult {
	return result(
		check("assets.image_url", strings.TrimSpace(imageURL) != "", "image URL must be non-empty"),
		check("assets.provider", strings.TrimSpace(provider) != "", "asset provider must be non-empty"),
	)
}

// Publish passes iff the post id, edit URL and status are all present.
func Publish(postID, editURL, status string) models.ValidationResult {
	return result(
		check("publish.post_id", strings.TrimSpace(postID) != "", "post id must be non-empty"),
		check("publish.edit_url", strings.TrimSpace(editURL) != "", "edit URL must be non-empty"),
		check("publish.status", strings.TrimSpace(status) != "", "publish status must be non-empty"),
	)
}

// Analytics passes iff the aggregated summary exists.
func Analytics(analytics *models.AnalyticsResult) models.ValidationResult {
	return result(
		check("analytics.summary", analytics != nil && strings.TrimSpace(analytics.Summary) != "",
			"analytics summary must be non-empty"),
	)
}

// Skipped is the sentinel checklist for stages bypassed by run options. It
// always passes so downstream logic treats skipped and completed stages
// uniformly.
func Skipped(kind models.StepKind) models.ValidationResult {
	return result(
		check(string(kind)+".skipped", true, "stage disabled by run options"),
	)
}

// ForStep dispatches to the matching verifier for a stage's bundle output.
// Stages recorded with the skip sentinel verify trivially.
func ForStep(kind models.StepKind, b *models.Bundle) models.ValidationResult {
	switch kind {
	case models.StepResearch:
		if b.Research == nil {
			return Research(nil, models.Insight{})
		}

		return Research(b.Research.Sources, b.Research.Insight)
	case models.StepDraft:
		if b.Draft == nil {
			return Draft("")
		}

		return Draft(b.Draft.Content)
	case models.StepRewrite:
		var variants map[string]models.PlatformVariant
		if b.Rewrite != nil {
			variants = b.Rewrite.Variants
		}

		return Rewrite(variants, b.Options.Platforms)
	case models.StepAssets:
		if b.Assets != nil && b.Assets.Provider == models.SkippedProvider {
			return Skipped(kind)
		}

		if b.Assets == nil {
			return Asset("", "")
		}

		return Asset(b.Assets.ImageURL, b.Assets.Provider)
	case models.StepPublish:
		if b.Publish != nil && b.Publish.Mode == models.SkippedProvider {
			return Skipped(kind)
		}

		if b.Publish == nil {
			return Publish("", "", "")
		}

		return Publish(b.Publish.PostID, b.Publish.EditURL, b.Publish.Status)
	case models.StepAnalytics:
		return Analytics(b.Analytics)
	default:
		return result(check(string(kind), false, "unknown step kind"))
	}
}
