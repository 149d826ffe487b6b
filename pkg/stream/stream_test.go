package stream_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/stream"
)

func TestDecoderSkipsNoise(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"type":"meta","request_id":"req-1","provider":"llm"}`,
		``,
		`not json at all`,
		`{"no_type_field":true}`,
		`{"type":"content","content":"hello ","done":false}`,
		`{"type":"content","content":"world","done":true}`,
	}, "\n")

	decoder := stream.NewDecoder(strings.NewReader(input))

	event, err := decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, stream.EventMeta, event.Type)
	assert.Equal(t, "req-1", event.RequestID)

	event, err = decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello ", event.Content)

	event, err = decoder.Next()
	require.NoError(t, err)
	assert.True(t, event.Done)

	_, err = decoder.Next()
	require.ErrorIs(t, err, io.EOF)

	assert.Equal(t, 2, decoder.Dropped())
}

func TestErrorEventToStageError(t *testing.T) {
	t.Parallel()

	decoder := stream.NewDecoder(strings.NewReader(
		`{"type":"error","code":"RATE_LIMITED","message":"slow down"}` + "\n"))

	event, err := decoder.Next()
	require.NoError(t, err)

	stageErr := event.Err()
	require.Error(t, stageErr)

	var typed *models.StageError
	require.True(t, errors.As(stageErr, &typed))
	assert.Equal(t, models.CodeRateLimited, typed.Code)
	assert.Equal(t, "slow down", typed.Detail)
}

func TestErrorEventWithoutCodeDefaultsToUnknown(t *testing.T) {
	t.Parallel()

	event := &stream.Event{Type: stream.EventError, Message: "boom"}

	var typed *models.StageError
	require.True(t, errors.As(event.Err(), &typed))
	assert.Equal(t, models.CodeUnknownError, typed.Code)
}

func TestNonErrorEventHasNoError(t *testing.T) {
	t.Parallel()

	event := &stream.Event{Type: stream.EventContent, Content: "x"}
	assert.NoError(t, event.Err())
}

func TestEncoderDecoderRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	encoder := stream.NewEncoder(&buf)

	source := &models.Source{Title: "t", URL: "https://example.com"}
	require.NoError(t, encoder.Encode(&stream.Event{Type: stream.EventSource, Source: source}))
	require.NoError(t, encoder.Encode(&stream.Event{Type: stream.EventInsight, Insight: &models.Insight{
		Summary:           "s",
		RecommendedTitles: []string{"a"},
	}}))

	decoder := stream.NewDecoder(&buf)

	event, err := decoder.Next()
	require.NoError(t, err)
	require.NotNil(t, event.Source)
	assert.Equal(t, "t", event.Source.Title)

	event, err = decoder.Next()
	require.NoError(t, err)
	require.NotNil(t, event.Insight)
	assert.Equal(t, "s", event.Insight.Summary)

	assert.Zero(t, decoder.Dropped())
}
