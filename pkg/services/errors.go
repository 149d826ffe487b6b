// Package services provides the run entry point: submit-or-resume, status
// lookup, recovery discovery and report rendering on top of the runner and
// the task registry.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors mapped to client responses (4xx).
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrTaskNotFound         = errors.New("task not found")
	ErrRunInProgress        = errors.New("run is already in progress")
	ErrUnsupportedFormat    = errors.New("unsupported report format")
	ErrReportNotReady       = errors.New("run has not produced a reportable payload yet")
	ErrProjectIDRequired    = errors.New("project id is required")
	ErrResumeTargetMismatch = errors.New("resume target belongs to a different project")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks whether an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrProjectIDRequired) ||
		errors.Is(err, ErrResumeTargetMismatch) ||
		errors.Is(err, ErrUnsupportedFormat)
}

// IsNotFoundError checks whether an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// IsConflictError checks whether an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrRunInProgress)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
