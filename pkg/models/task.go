package models

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of a registry task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusFailed    TaskStatus = "FAILED"
	TaskStatusCancelled TaskStatus = "CANCELLED"
)

// TaskKindWorkflow marks tasks that wrap a whole pipeline run, as opposed to
// a single stage sub-task.
const TaskKindWorkflow = "workflow"

// TaskError is the structured error attached to a failed task.
type TaskError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
}

// TaskSnapshot is the durable wrapper around a run or sub-task held by the
// task registry. For workflow-kind tasks the payload embeds the persisted
// run payload (steps, bundle, status, failed step, recoverable flag).
type TaskSnapshot struct {
	TaskID         string         `json:"task_id"`
	Kind           string         `json:"kind"`
	Status         TaskStatus     `json:"status"`
	Progress       int            `json:"progress"`
	ProjectID      string         `json:"project_id,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	TraceID        string         `json:"trace_id,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	Error          *TaskError     `json:"error,omitempty"`
}

// Clone returns a copy safe to hand outside the registry. The payload map is
// copied at the top level only; values are shared, matching the registry's
// merge-at-top-level contract.
func (s *TaskSnapshot) Clone() *TaskSnapshot {
	if s == nil {
		return nil
	}

	out := *s

	if s.Payload != nil {
		out.Payload = make(map[string]any, len(s.Payload))
		for k, v := range s.Payload {
			out.Payload[k] = v
		}
	}

	if s.EndedAt != nil {
		ended := *s.EndedAt
		out.EndedAt = &ended
	}

	if s.Error != nil {
		taskErr := *s.Error
		out.Error = &taskErr
	}

	return &out
}

// TaskPatch is a partial update applied to a snapshot. Non-zero fields
// replace; the payload is shallow-merged at top-level keys so concurrent
// writers to disjoint keys compose.
type TaskPatch struct {
	Kind           string
	Status         TaskStatus
	Progress       *int
	ProjectID      string
	Provider       string
	TraceID        string
	IdempotencyKey string
	Payload        map[string]any
	Error          *TaskError
}

// TaskFilter selects snapshots for listing. Zero fields match everything.
type TaskFilter struct {
	Kind      string
	Status    []TaskStatus
	ProjectID string
	Limit     int
}

// RunPayload is the persisted shape that recovery and reporting read back.
type RunPayload struct {
	Steps       []StepLog  `json:"steps"`
	Bundle      Bundle     `json:"bundle"`
	Status      TaskStatus `json:"status"`
	FailedStep  StepKind   `json:"failed_step,omitempty"`
	Recoverable bool       `json:"recoverable"`
}

// ToMap converts the payload to the registry's top-level-key map so the
// steps and bundle keys stay independently patchable.
func (p RunPayload) ToMap() map[string]any {
	m := map[string]any{
		"steps":       p.Steps,
		"bundle":      p.Bundle,
		"status":      p.Status,
		"recoverable": p.Recoverable,
	}

	if p.FailedStep != "" {
		m["failed_step"] = p.FailedStep
	}

	return m
}

// DecodeRunPayload rebuilds a run payload from a registry payload map. It
// round-trips through JSON so both typed values (in-process store) and
// decoded maps (external store) restore identically.
func DecodeRunPayload(payload map[string]any) (*RunPayload, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var p RunPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	return &p, nil
}
