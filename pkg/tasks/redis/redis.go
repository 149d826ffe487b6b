// Package redis provides a Redis-backed task registry. It is the durable
// swap-in for the in-memory registry when task state must survive a process
// restart; the interface semantics are identical, with the TTL enforced by
// key expiry instead of a lazy sweep.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/tasks"
)

const (
	keyPrefix = "contentline:task:"
	indexKey  = "contentline:tasks"
)

// Registry stores snapshots as JSON values under per-task keys plus a sorted
// set index scored by update time. Writes are read-modify-write without a
// transaction: concurrent patches to the same task are last-write-wins at
// field granularity, matching the registry contract.
type Registry struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates a registry on an existing Redis client.
func NewRegistry(client redis.UniversalClient, logger *slog.Logger) *Registry {
	return &Registry{
		client: client,
		ttl:    tasks.TTL,
		logger: logger.With("module", "task_registry_redis"),
		now:    time.Now,
	}
}

// NewRegistryFromURL dials Redis using a redis:// connection URL.
func NewRegistryFromURL(url string, logger *slog.Logger) (*Registry, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	return NewRegistry(redis.NewClient(opts), logger), nil
}

func (r *Registry) load(ctx context.Context, taskID string) *models.TaskSnapshot {
	raw, err := r.client.Get(ctx, keyPrefix+taskID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.ErrorContext(ctx, "Failed to load task snapshot", "task_id", taskID, "error", err)
		}

		return nil
	}

	var snapshot models.TaskSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		r.logger.ErrorContext(ctx, "Corrupt task snapshot, discarding", "task_id", taskID, "error", err)

		return nil
	}

	return &snapshot
}

func (r *Registry) store(ctx context.Context, snapshot *models.TaskSnapshot) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to encode task snapshot", "task_id", snapshot.TaskID, "error", err)

		return
	}

	if err := r.client.Set(ctx, keyPrefix+snapshot.TaskID, raw, r.ttl).Err(); err != nil {
		r.logger.ErrorContext(ctx, "Failed to store task snapshot", "task_id", snapshot.TaskID, "error", err)

		return
	}

	err = r.client.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(snapshot.UpdatedAt.UnixMilli()),
		Member: snapshot.TaskID,
	}).Err()
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to index task snapshot", "task_id", snapshot.TaskID, "error", err)
	}
}

func (r *Registry) Upsert(ctx context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot {
	now := r.now()

	snapshot := r.load(ctx, taskID)
	if snapshot == nil {
		snapshot = &models.TaskSnapshot{
			TaskID:    taskID,
			Status:    models.TaskStatusRunning,
			StartedAt: now,
			UpdatedAt: now,
		}
	}

	tasks.Merge(snapshot, patch, now)
	r.store(ctx, snapshot)

	return snapshot
}

func (r *Registry) Patch(ctx context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot {
	snapshot := r.load(ctx, taskID)
	if snapshot == nil {
		return nil
	}

	tasks.Merge(snapshot, patch, r.now())
	r.store(ctx, snapshot)

	return snapshot
}

func (r *Registry) Complete(ctx context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot {
	patch.Status = models.TaskStatusCompleted

	if patch.Progress == nil {
		full := 100
		patch.Progress = &full
	}

	snapshot := r.load(ctx, taskID)
	if snapshot == nil {
		return nil
	}

	now := r.now()
	tasks.Merge(snapshot, patch, now)
	snapshot.EndedAt = &now
	r.store(ctx, snapshot)

	return snapshot
}

func (r *Registry) Fail(ctx context.Context, taskID string, taskErr *models.TaskError, patch models.TaskPatch) *models.TaskSnapshot {
	patch.Status = models.TaskStatusFailed
	patch.Error = taskErr

	snapshot := r.load(ctx, taskID)
	if snapshot == nil {
		return nil
	}

	now := r.now()
	tasks.Merge(snapshot, patch, now)
	snapshot.EndedAt = &now
	r.store(ctx, snapshot)

	return snapshot
}

func (r *Registry) Get(ctx context.Context, taskID string) *models.TaskSnapshot {
	return r.load(ctx, taskID)
}

func (r *Registry) List(ctx context.Context, filter models.TaskFilter) []*models.TaskSnapshot {
	ids, err := r.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list task index", "error", err)

		return nil
	}

	matched := make([]*models.TaskSnapshot, 0, len(ids))

	for _, id := range ids {
		snapshot := r.load(ctx, id)
		if snapshot == nil {
			// Key expired; drop the stale index entry.
			r.client.ZRem(ctx, indexKey, id)

			continue
		}

		if tasks.Matches(snapshot, filter) {
			matched = append(matched, snapshot)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched
}

func (r *Registry) HealthCheck(ctx context.Context) (string, bool) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return "redis unreachable: " + err.Error(), false
	}

	return "redis task registry operational", true
}

func (r *Registry) Close() error {
	return r.client.Close()
}
