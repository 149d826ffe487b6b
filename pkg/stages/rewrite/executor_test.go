package rewrite_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/stages/rewrite"
	"github.com/contentline/contentline/pkg/verifier"
)

func draftedBundle(platforms ...string) *models.Bundle {
	opts := models.DefaultRunOptions()
	if len(platforms) > 0 {
		opts.Platforms = platforms
	}

	bundle := models.NewBundle("p1", "Remote work rituals", opts)
	bundle.Research = &models.ResearchResult{
		Insight: models.Insight{
			Summary:           "Summary.",
			RecommendedTitles: []string{"Title one", "Title two"},
		},
	}
	bundle.Draft = &models.DraftResult{Content: strings.Repeat("All work and no play. ", 120)}

	return bundle
}

func TestExecuteRequiresDraft(t *testing.T) {
	t.Parallel()

	executor := rewrite.NewExecutor(nil)
	bundle := models.NewBundle("p1", "topic", models.DefaultRunOptions())

	_, err := executor.Execute(context.Background(), bundle, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestFallbackVariantsPerPlatform(t *testing.T) {
	t.Parallel()

	executor := rewrite.NewExecutor(nil)
	bundle := draftedBundle()

	provider, err := executor.Execute(context.Background(), bundle, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, "fallback", provider)

	require.NotNil(t, bundle.Rewrite)
	require.Len(t, bundle.Rewrite.Variants, 4)
	assert.Empty(t, bundle.Rewrite.Errors)

	for platform, variant := range bundle.Rewrite.Variants {
		assert.NotEmpty(t, variant.Body, platform)
		assert.NotEmpty(t, variant.TitleCandidates, platform)
		assert.NotEmpty(t, variant.Hashtags, platform)
	}

	assert.True(t, verifier.Rewrite(bundle.Rewrite.Variants, bundle.Options.Platforms).OK)
}

func TestPlatformBodyLimits(t *testing.T) {
	t.Parallel()

	executor := rewrite.NewExecutor(nil)
	bundle := draftedBundle("WEIBO", "XIAOHONGSHU", "WECHAT")

	_, err := executor.Execute(context.Background(), bundle, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// The truncated draft plus the adaptation suffix stays near each
	// platform's practical limit; WEIBO must be the tightest.
	weibo := len([]rune(bundle.Rewrite.Variants["WEIBO"].Body))
	xiaohongshu := len([]rune(bundle.Rewrite.Variants["XIAOHONGSHU"].Body))
	wechat := len([]rune(bundle.Rewrite.Variants["WECHAT"].Body))

	assert.Less(t, weibo, xiaohongshu)
	assert.Less(t, xiaohongshu, wechat)
}
