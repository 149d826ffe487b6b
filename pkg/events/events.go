// Package events defines the telemetry events emitted on the run lifecycle
// side channel. Publishing is best-effort and never affects run outcome.
package events

import (
	"time"

	"github.com/contentline/contentline/pkg/models"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "contentline.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"

	StepStartedEvent   EventType = "step.started"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}

type RunStarted struct {
	BaseEvent

	Topic   string `json:"topic"`
	Resumed bool   `json:"resumed"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	DurationMs int64 `json:"duration_ms"`
	StepCount  int   `json:"step_count"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	FailedStep  models.StepKind `json:"failed_step"`
	ErrorCode   string          `json:"error_code"`
	Error       string          `json:"error"`
	Recoverable bool            `json:"recoverable"`
	DurationMs  int64           `json:"duration_ms"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type StepStarted struct {
	BaseEvent

	Step models.StepKind `json:"step"`
}

func (e StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	Step       models.StepKind `json:"step"`
	Provider   string          `json:"provider"`
	DurationMs int64           `json:"duration_ms"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	Step       models.StepKind `json:"step"`
	ErrorCode  string          `json:"error_code"`
	Error      string          `json:"error"`
	DurationMs int64           `json:"duration_ms"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}
