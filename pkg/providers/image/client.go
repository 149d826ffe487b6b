// Package image provides the asset-generation client.
package image

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers"
)

const Timeout = 120 * time.Second

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
		logger:  logger.With("module", "image_client"),
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
}

type generateResponse struct {
	URL      string `json:"url"`
	Provider string `json:"provider,omitempty"`
}

// Generate requests a cover image for the given prompt and returns its URL.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", providers.ClassifyTransportError("image", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", providers.ClassifyStatus("image", resp.StatusCode, models.CodeProviderUnavailable)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", models.WrapStageError(models.CodeProviderUnavailable, "image provider returned a malformed response", err)
	}

	if result.URL == "" {
		return "", models.NewStageError(models.CodeProviderUnavailable, "image provider returned an empty URL")
	}

	return result.URL, nil
}
