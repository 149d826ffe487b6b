// Package models defines the core domain models for the content production
// pipeline: run bundles, step logs, task snapshots and the stage error
// taxonomy.
package models

import "time"

// StepKind identifies one of the six fixed pipeline stages.
type StepKind string

const (
	StepResearch  StepKind = "research"
	StepDraft     StepKind = "draft"
	StepRewrite   StepKind = "rewrite"
	StepAssets    StepKind = "assets"
	StepPublish   StepKind = "publish"
	StepAnalytics StepKind = "analytics"
)

// StepOrder returns the fixed execution order of the pipeline. The order is
// total: every stage depends on the bundle fields of the previous one.
func StepOrder() []StepKind {
	return []StepKind{StepResearch, StepDraft, StepRewrite, StepAssets, StepPublish, StepAnalytics}
}

// StepStatus represents the lifecycle state of a single pipeline step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "PENDING"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusCompleted StepStatus = "COMPLETED"
	StepStatusFailed    StepStatus = "FAILED"
	StepStatusSkipped   StepStatus = "SKIPPED"
)

// SkippedProvider is recorded on steps that were bypassed by run options.
// A skipped stage still completes, with an always-pass checklist, so
// downstream stages treat it uniformly with executed stages.
const SkippedProvider = "skipped"

// StepLog is the per-stage status, timing and validation record. Entries are
// mutated in place by the runner, one step at a time.
type StepLog struct {
	Step         StepKind          `json:"step"`
	Status       StepStatus        `json:"status"`
	RetryCount   int               `json:"retry_count"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	Provider     string            `json:"provider,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Validation   *ValidationResult `json:"validation,omitempty"`
}

// NewStepLogs builds a pending step log covering the full pipeline order.
func NewStepLogs() []StepLog {
	order := StepOrder()
	steps := make([]StepLog, 0, len(order))

	for _, kind := range order {
		steps = append(steps, StepLog{Step: kind, Status: StepStatusPending})
	}

	return steps
}

// ValidationCheck is a single named pass/fail entry in a verifier checklist.
type ValidationCheck struct {
	Key     string `json:"key"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// ValidationResult is the full checklist produced by a verifier call.
// It is immutable once produced and only ever embedded in a step log.
type ValidationResult struct {
	OK     bool              `json:"ok"`
	Checks []ValidationCheck `json:"checks"`
}

// FailedKeys returns the keys of all failing checks, in checklist order.
func (r ValidationResult) FailedKeys() []string {
	var keys []string

	for _, check := range r.Checks {
		if !check.Passed {
			keys = append(keys, check.Key)
		}
	}

	return keys
}
