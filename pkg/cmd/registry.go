// Package cmd provides common initialization for the command-line binaries:
// stage registry, task registry and event bus construction.
package cmd

import (
	"log/slog"

	"github.com/contentline/contentline/pkg/providers/image"
	"github.com/contentline/contentline/pkg/providers/llm"
	"github.com/contentline/contentline/pkg/providers/search"
	"github.com/contentline/contentline/pkg/providers/wordpress"
	"github.com/contentline/contentline/pkg/registry"
	"github.com/contentline/contentline/pkg/stages/analytics"
	"github.com/contentline/contentline/pkg/stages/assets"
	"github.com/contentline/contentline/pkg/stages/draft"
	"github.com/contentline/contentline/pkg/stages/publish"
	"github.com/contentline/contentline/pkg/stages/research"
	"github.com/contentline/contentline/pkg/stages/rewrite"
)

// ProviderConfig carries the external provider credentials. Empty fields
// leave the corresponding client unconfigured; stages then use their
// deterministic fallbacks.
type ProviderConfig struct {
	SearchURL    string
	SearchAPIKey string

	LLMURL    string
	LLMAPIKey string
	LLMModel  string

	ImageURL    string
	ImageAPIKey string

	WordpressURL      string
	WordpressUser     string
	WordpressPassword string
}

// NewStageRegistry wires all six pipeline stages with their provider
// clients.
func NewStageRegistry(cfg ProviderConfig, logger *slog.Logger) *registry.Registry {
	searchClient := search.NewClient(cfg.SearchURL, cfg.SearchAPIKey, logger)
	llmClient := llm.NewClient(cfg.LLMURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	imageClient := image.NewClient(cfg.ImageURL, cfg.ImageAPIKey, logger)
	wordpressClient := wordpress.NewClient(cfg.WordpressURL, cfg.WordpressUser, cfg.WordpressPassword, logger)

	reg := registry.NewRegistry(logger)
	reg.Register(research.NewExecutor(searchClient))
	reg.Register(draft.NewExecutor(llmClient))
	reg.Register(rewrite.NewExecutor(llmClient))
	reg.Register(assets.NewExecutor(imageClient))
	reg.Register(publish.NewExecutor(wordpressClient))
	reg.Register(analytics.NewExecutor())

	return reg
}
