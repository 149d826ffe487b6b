// Package memory provides the in-process task registry implementation. State
// is scoped to the lifetime of the host process; a restart loses all tasks,
// which is a documented limitation, not a bug.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/tasks"
)

// Registry is a mutex-guarded map of task snapshots with lazy TTL purging:
// every access sweeps entries whose UpdatedAt is older than the TTL, which
// bounds memory without a background goroutine. Correctness relies on
// at-least-one access per entry lifetime, acceptable because status polling
// happens continuously during real usage.
type Registry struct {
	mu        sync.RWMutex
	snapshots map[string]*models.TaskSnapshot
	ttl       time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewRegistry creates an empty in-memory registry with the default TTL.
func NewRegistry() *Registry {
	return &Registry{
		snapshots: make(map[string]*models.TaskSnapshot),
		ttl:       tasks.TTL,
		now:       time.Now,
	}
}

// purgeExpired removes stale entries. Callers must hold the write lock.
func (r *Registry) purgeExpired(now time.Time) {
	cutoff := now.Add(-r.ttl)

	for id, snapshot := range r.snapshots {
		if snapshot.UpdatedAt.Before(cutoff) {
			delete(r.snapshots, id)
		}
	}
}

func (r *Registry) Upsert(_ context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purgeExpired(now)

	snapshot, exists := r.snapshots[taskID]
	if !exists {
		snapshot = &models.TaskSnapshot{
			TaskID:    taskID,
			Status:    models.TaskStatusRunning,
			StartedAt: now,
			UpdatedAt: now,
		}
		r.snapshots[taskID] = snapshot
	}

	tasks.Merge(snapshot, patch, now)

	return snapshot.Clone()
}

func (r *Registry) Patch(_ context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purgeExpired(now)

	snapshot, exists := r.snapshots[taskID]
	if !exists {
		return nil
	}

	tasks.Merge(snapshot, patch, now)

	return snapshot.Clone()
}

func (r *Registry) Complete(ctx context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot {
	patch.Status = models.TaskStatusCompleted

	if patch.Progress == nil {
		full := 100
		patch.Progress = &full
	}

	snapshot := r.Patch(ctx, taskID, patch)
	if snapshot == nil {
		return nil
	}

	return r.stampEnd(taskID)
}

func (r *Registry) Fail(ctx context.Context, taskID string, taskErr *models.TaskError, patch models.TaskPatch) *models.TaskSnapshot {
	patch.Status = models.TaskStatusFailed
	patch.Error = taskErr

	snapshot := r.Patch(ctx, taskID, patch)
	if snapshot == nil {
		return nil
	}

	return r.stampEnd(taskID)
}

func (r *Registry) stampEnd(taskID string) *models.TaskSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, exists := r.snapshots[taskID]
	if !exists {
		return nil
	}

	ended := r.now()
	snapshot.EndedAt = &ended

	return snapshot.Clone()
}

func (r *Registry) Get(_ context.Context, taskID string) *models.TaskSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeExpired(r.now())

	snapshot, exists := r.snapshots[taskID]
	if !exists {
		return nil
	}

	return snapshot.Clone()
}

func (r *Registry) List(_ context.Context, filter models.TaskFilter) []*models.TaskSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeExpired(r.now())

	matched := make([]*models.TaskSnapshot, 0, len(r.snapshots))

	for _, snapshot := range r.snapshots {
		if tasks.Matches(snapshot, filter) {
			matched = append(matched, snapshot.Clone())
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

func (r *Registry) HealthCheck(_ context.Context) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return "memory task registry operational", true
}

func (r *Registry) Close() error {
	return nil
}

// SetClock overrides the registry clock. Test hook.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.now = now
}
