package research_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/stages/research"
	"github.com/contentline/contentline/pkg/verifier"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteRejectsEmptyTopic(t *testing.T) {
	t.Parallel()

	executor := research.NewExecutor(nil)

	for _, topic := range []string{"", "   ", "\n\t"} {
		bundle := models.NewBundle("p1", topic, models.DefaultRunOptions())

		_, err := executor.Execute(context.Background(), bundle, testLogger())
		require.Error(t, err, "topic %q", topic)

		var stageErr *models.StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, models.CodeValidationError, stageErr.Code)
		assert.Nil(t, bundle.Research)
	}
}

func TestSyntheticResearchSatisfiesVerifier(t *testing.T) {
	t.Parallel()

	executor := research.NewExecutor(nil)
	bundle := models.NewBundle("p1", "Urban beekeeping", models.DefaultRunOptions())

	provider, err := executor.Execute(context.Background(), bundle, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "synthetic", provider)

	require.NotNil(t, bundle.Research)
	assert.Equal(t, "synthetic", bundle.Research.Provider)
	assert.GreaterOrEqual(t, len(bundle.Research.Sources), 1)
	assert.GreaterOrEqual(t, len(bundle.Research.Insight.RecommendedTitles), 1)

	require.Len(t, bundle.Research.Attempts, 1)
	assert.True(t, bundle.Research.Attempts[0].OK)

	assert.True(t, verifier.Research(bundle.Research.Sources, bundle.Research.Insight).OK)
}
