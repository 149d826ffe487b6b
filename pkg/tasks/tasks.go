// Package tasks provides the task registry abstraction: a TTL-bounded store
// of run/task snapshots used for status polling and recovery discovery.
//
// The registry is a best-effort cache, not a source-of-truth guarantee: no
// method returns an error and implementations swallow their own failures.
package tasks

import (
	"context"
	"time"

	"github.com/contentline/contentline/pkg/models"
)

// TTL bounds how long an untouched snapshot survives. Entries older than
// this are purged lazily on the next registry access.
const TTL = 24 * time.Hour

// Registry maps task ids to snapshots.
type Registry interface {
	// Upsert creates the task if absent (status RUNNING, timestamps set to
	// now) or merges the patch into the existing snapshot. Progress is
	// clamped to [0,100] on every write.
	Upsert(ctx context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot

	// Patch merges into an existing task and returns nil if the task is
	// absent; callers must have upserted first.
	Patch(ctx context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot

	// Complete patches with status COMPLETED, progress 100 unless the patch
	// overrides it, and stamps the end time.
	Complete(ctx context.Context, taskID string, patch models.TaskPatch) *models.TaskSnapshot

	// Fail patches with status FAILED, attaches the error and stamps the
	// end time.
	Fail(ctx context.Context, taskID string, taskErr *models.TaskError, patch models.TaskPatch) *models.TaskSnapshot

	// Get returns the snapshot, or nil if absent or expired.
	Get(ctx context.Context, taskID string) *models.TaskSnapshot

	// List returns snapshots matching the filter, sorted by UpdatedAt
	// descending and truncated to the filter limit.
	List(ctx context.Context, filter models.TaskFilter) []*models.TaskSnapshot

	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) (string, bool)

	Close() error
}

// ClampProgress bounds a progress value to [0,100].
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}

	if progress > 100 {
		return 100
	}

	return progress
}

// Merge applies a patch to a snapshot in place, following the registry merge
// contract: non-zero scalar fields replace, the payload is shallow-merged at
// top-level keys only.
func Merge(snapshot *models.TaskSnapshot, patch models.TaskPatch, now time.Time) {
	if patch.Kind != "" {
		snapshot.Kind = patch.Kind
	}

	if patch.Status != "" {
		snapshot.Status = patch.Status
	}

	if patch.Progress != nil {
		snapshot.Progress = ClampProgress(*patch.Progress)
	}

	if patch.ProjectID != "" {
		snapshot.ProjectID = patch.ProjectID
	}

	if patch.Provider != "" {
		snapshot.Provider = patch.Provider
	}

	if patch.TraceID != "" {
		snapshot.TraceID = patch.TraceID
	}

	if patch.IdempotencyKey != "" {
		snapshot.IdempotencyKey = patch.IdempotencyKey
	}

	if patch.Payload != nil {
		if snapshot.Payload == nil {
			snapshot.Payload = make(map[string]any, len(patch.Payload))
		}

		for k, v := range patch.Payload {
			snapshot.Payload[k] = v
		}
	}

	if patch.Error != nil {
		taskErr := *patch.Error
		snapshot.Error = &taskErr
	}

	snapshot.UpdatedAt = now
}

// Matches reports whether a snapshot satisfies a filter.
func Matches(snapshot *models.TaskSnapshot, filter models.TaskFilter) bool {
	if filter.Kind != "" && snapshot.Kind != filter.Kind {
		return false
	}

	if filter.ProjectID != "" && snapshot.ProjectID != filter.ProjectID {
		return false
	}

	if len(filter.Status) > 0 {
		found := false

		for _, status := range filter.Status {
			if snapshot.Status == status {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
