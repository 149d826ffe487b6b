// Package search provides the research-stage client: it queries the
// configured search surface and consumes the streamed source and insight
// events.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers"
	"github.com/contentline/contentline/pkg/stream"
)

// Timeout allows for search plus LLM-backed insight synthesis upstream.
const Timeout = 180 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: Timeout},
		logger:  logger.With("module", "search_client"),
	}
}

// Configured reports whether the client can reach a real provider. An
// unconfigured client makes the calling stage fall back to synthetic
// research.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type researchRequest struct {
	Query      string `json:"query"`
	Tool       string `json:"tool"`
	TimeWindow string `json:"time_window"`
}

// Research queries the provider and folds the event stream into sources and
// an insight. The stream is zero or more source events followed by exactly
// one insight (terminal) or error event.
func (c *Client) Research(ctx context.Context, topic string, tool models.ResearchTool, window models.TimeWindow) ([]models.Source, *models.Insight, error) {
	body, err := json.Marshal(researchRequest{
		Query:      topic,
		Tool:       string(tool),
		TimeWindow: string(window),
	})
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/research", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, providers.ClassifyTransportError("search", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, providers.ClassifyStatus("search", resp.StatusCode, models.CodeProviderUnavailable)
	}

	var (
		sources []models.Source
		insight *models.Insight
	)

	decoder := stream.NewDecoder(resp.Body)

	for {
		event, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, nil, providers.ClassifyTransportError("search", err)
		}

		switch event.Type {
		case stream.EventSource:
			if event.Source != nil {
				sources = append(sources, *event.Source)
			}
		case stream.EventInsight:
			insight = event.Insight
		case stream.EventError:
			return nil, nil, event.Err()
		case stream.EventWarning:
			c.logger.WarnContext(ctx, "search provider warning", "message", event.Message)
		}
	}

	if insight == nil {
		return nil, nil, models.WrapStageError(models.CodeProviderUnavailable,
			"search stream ended without an insight", stream.ErrNoTerminalEvent)
	}

	return sources, insight, nil
}
