// Package wordpress provides the CMS publishing client. Credential
// rejections map to the non-retriable WP_AUTH_FAILED code; everything else
// follows the shared provider error taxonomy.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers"
)

const Timeout = 120 * time.Second

type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *slog.Logger
}

func NewClient(baseURL, username, password string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		client:   &http.Client{Timeout: Timeout},
		logger:   logger.With("module", "wordpress_client"),
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// Post is the payload sent to the CMS.
type Post struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	FeaturedImage string `json:"featured_image,omitempty"`
	Status        string `json:"status"`
}

type postResponse struct {
	ID     json.Number `json:"id"`
	Link   string      `json:"link"`
	Status string      `json:"status"`
}

// CreatePost publishes a draft post and returns the CMS identifiers the
// publish verifier requires.
func (c *Client) CreatePost(ctx context.Context, post Post) (*models.PublishResult, error) {
	if post.Status == "" {
		post.Status = "draft"
	}

	body, err := json.Marshal(post)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, providers.ClassifyTransportError("wordpress", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, providers.ClassifyStatus("wordpress", resp.StatusCode, models.CodeWPAuthFailed)
	}

	var result postResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, models.WrapStageError(models.CodeProviderUnavailable, "wordpress returned a malformed response", err)
	}

	postID := result.ID.String()

	return &models.PublishResult{
		Mode:    "wordpress",
		PostID:  postID,
		EditURL: fmt.Sprintf("%s/wp-admin/post.php?post=%s&action=edit", c.baseURL, postID),
		Status:  result.Status,
		Message: "post created",
	}, nil
}
