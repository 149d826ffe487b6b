package cmd

import (
	"log/slog"
	"strings"

	"github.com/contentline/contentline/pkg/tasks"
	"github.com/contentline/contentline/pkg/tasks/memory"
	"github.com/contentline/contentline/pkg/tasks/redis"
)

// NewTaskRegistry builds the task registry from a store URL. A redis:// or
// rediss:// URL selects the Redis-backed store; anything else, including an
// empty URL, gets the in-memory store.
func NewTaskRegistry(storeURL string, logger *slog.Logger) tasks.Registry {
	if strings.HasPrefix(storeURL, "redis://") || strings.HasPrefix(storeURL, "rediss://") {
		registry, err := redis.NewRegistryFromURL(storeURL, logger)
		if err != nil {
			logger.Error("Failed to connect to Redis task store, falling back to memory", "error", err)

			return memory.NewRegistry()
		}

		return registry
	}

	return memory.NewRegistry()
}
