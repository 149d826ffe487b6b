// Package llm provides the text-generation client used by the draft and
// rewrite stages. Generation responses stream as NDJSON content or variant
// events.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers"
	"github.com/contentline/contentline/pkg/stream"
)

// Timeout covers LLM latency on long drafts.
const Timeout = 180 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey, model string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: Timeout},
		logger:  logger.With("module", "llm_client"),
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// DraftRequest describes a long-form generation call.
type DraftRequest struct {
	Topic    string `json:"topic"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
	Length   string `json:"length"`
	Context  string `json:"context,omitempty"`
}

// Draft generates long-form content, concatenating streamed content chunks.
// Warnings on the stream are returned alongside the content, not as errors.
func (c *Client) Draft(ctx context.Context, req DraftRequest) (string, []string, error) {
	var (
		content  strings.Builder
		warnings []string
	)

	err := c.stream(ctx, "/v1/draft", req, func(event *stream.Event) {
		switch event.Type {
		case stream.EventContent:
			content.WriteString(event.Content)
		case stream.EventWarning:
			warnings = append(warnings, event.Message)
		}
	})
	if err != nil {
		return "", nil, err
	}

	if content.Len() == 0 {
		return "", nil, models.WrapStageError(models.CodeProviderUnavailable,
			"draft stream ended without content", stream.ErrNoTerminalEvent)
	}

	return content.String(), warnings, nil
}

// RewriteRequest describes a per-platform rewrite call.
type RewriteRequest struct {
	Platform string `json:"platform"`
	Content  string `json:"content"`
	Tone     string `json:"tone"`
}

// Rewrite produces one platform variant from the streamed variant event.
func (c *Client) Rewrite(ctx context.Context, req RewriteRequest) (*models.PlatformVariant, error) {
	var variant *models.PlatformVariant

	err := c.stream(ctx, "/v1/rewrite", req, func(event *stream.Event) {
		if event.Type == stream.EventVariant && event.Variant != nil {
			variant = event.Variant
		}
	})
	if err != nil {
		return nil, err
	}

	if variant == nil {
		return nil, models.WrapStageError(models.CodeProviderUnavailable,
			"rewrite stream ended without a variant", stream.ErrNoTerminalEvent)
	}

	return variant, nil
}

type generatePayload struct {
	Model string `json:"model,omitempty"`
	Input any    `json:"input"`
}

func (c *Client) stream(ctx context.Context, path string, input any, onEvent func(*stream.Event)) error {
	body, err := json.Marshal(generatePayload{Model: c.model, Input: input})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.client.Do(req)
	if err != nil {
		return providers.ClassifyTransportError("llm", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providers.ClassifyStatus("llm", resp.StatusCode, models.CodeProviderUnavailable)
	}

	decoder := stream.NewDecoder(resp.Body)

	for {
		event, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return providers.ClassifyTransportError("llm", err)
		}

		if event.Type == stream.EventError {
			return event.Err()
		}

		onEvent(event)
	}
}
