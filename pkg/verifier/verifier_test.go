package verifier_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/verifier"
)

func TestResearch(t *testing.T) {
	t.Parallel()

	sources := []models.Source{{Title: "t", URL: "https://example.com"}}
	insight := models.Insight{Summary: "summary", RecommendedTitles: []string{"a title"}}

	result := verifier.Research(sources, insight)
	assert.True(t, result.OK)

	result = verifier.Research(nil, insight)
	assert.False(t, result.OK)
	assert.Equal(t, []string{"research.sources"}, result.FailedKeys())

	result = verifier.Research(sources, models.Insight{Summary: "   ", RecommendedTitles: []string{"a"}})
	assert.False(t, result.OK)
	assert.Equal(t, []string{"research.insight.summary"}, result.FailedKeys())
}

func TestDraftLengthGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		ok      bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t  ", false},
		{"one under the minimum", strings.Repeat("x", verifier.MinDraftLength-1), false},
		{"exactly the minimum", strings.Repeat("x", verifier.MinDraftLength), true},
		{"multibyte runes count as one", strings.Repeat("字", verifier.MinDraftLength), true},
		{"padding whitespace does not help", strings.Repeat("x", verifier.MinDraftLength-1) + "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := verifier.Draft(tt.content)
			assert.Equal(t, tt.ok, result.OK)
		})
	}
}

func TestRewriteMonotonicity(t *testing.T) {
	t.Parallel()

	platforms := []string{"WECHAT", "WEIBO"}
	variants := map[string]models.PlatformVariant{
		"WECHAT": {TitleCandidates: []string{"t1"}, Body: "body"},
		"WEIBO":  {TitleCandidates: []string{"t2"}},
	}

	result := verifier.Rewrite(variants, platforms)
	require.False(t, result.OK)
	assert.Equal(t, []string{"rewrite.WEIBO.body"}, result.FailedKeys())

	// Fixing the failing field flips only that check; nothing else regresses.
	fixed := variants["WEIBO"]
	fixed.Body = "a real body"
	variants["WEIBO"] = fixed

	result = verifier.Rewrite(variants, platforms)
	assert.True(t, result.OK)
	assert.Empty(t, result.FailedKeys())
}

func TestRewriteMissingPlatform(t *testing.T) {
	t.Parallel()

	variants := map[string]models.PlatformVariant{
		"WECHAT": {TitleCandidates: []string{"t"}, Body: "b"},
	}

	result := verifier.Rewrite(variants, []string{"WECHAT", "ZHIHU"})
	require.False(t, result.OK)
	assert.ElementsMatch(t, []string{"rewrite.ZHIHU.body", "rewrite.ZHIHU.titles"}, result.FailedKeys())
}

func TestForStepSkipSentinel(t *testing.T) {
	t.Parallel()

	bundle := &models.Bundle{
		Options: models.DefaultRunOptions(),
		Assets:  &models.AssetResult{Provider: models.SkippedProvider, Note: "disabled"},
		Publish: &models.PublishResult{Mode: models.SkippedProvider, Status: "skipped"},
	}

	result := verifier.ForStep(models.StepAssets, bundle)
	assert.True(t, result.OK)

	result = verifier.ForStep(models.StepPublish, bundle)
	assert.True(t, result.OK)
}

func TestForStepNilSubRecords(t *testing.T) {
	t.Parallel()

	bundle := &models.Bundle{Options: models.DefaultRunOptions()}

	for _, kind := range models.StepOrder() {
		result := verifier.ForStep(kind, bundle)
		assert.False(t, result.OK, "empty bundle must fail verification for %s", kind)
	}
}
