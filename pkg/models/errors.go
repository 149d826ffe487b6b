package models

import (
	"errors"
	"strings"
)

// ErrorCode classifies every failure a stage can surface. The vocabulary is
// fixed; anything unclassified maps to UNKNOWN_ERROR.
type ErrorCode string

const (
	CodeValidationError     ErrorCode = "VALIDATION_ERROR"
	CodeProviderTimeout     ErrorCode = "PROVIDER_TIMEOUT"
	CodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeRateLimited         ErrorCode = "RATE_LIMITED"
	CodeWPAuthFailed        ErrorCode = "WP_AUTH_FAILED"
	CodeUnknownError        ErrorCode = "UNKNOWN_ERROR"
)

// Retriable reports whether a caller may reasonably resubmit the same run
// without changing its input.
func (c ErrorCode) Retriable() bool {
	switch c {
	case CodeValidationError, CodeWPAuthFailed:
		return false
	default:
		return true
	}
}

// StageError is the structured form of a stage failure. Its text rendering
// keeps the "CODE: detail" convention for errors crossing a text boundary.
type StageError struct {
	Code   ErrorCode
	Detail string
	Err    error
}

func (e *StageError) Error() string {
	return string(e.Code) + ": " + e.Detail
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError builds a stage error with the given code and human detail.
func NewStageError(code ErrorCode, detail string) *StageError {
	return &StageError{Code: code, Detail: detail}
}

// WrapStageError attaches a code and detail to an underlying cause.
func WrapStageError(code ErrorCode, detail string, err error) *StageError {
	return &StageError{Code: code, Detail: detail, Err: err}
}

// ParseStageError extracts the code and detail from any error. Structured
// stage errors are matched directly; plain errors are split on the first
// colon if the prefix is a known code, otherwise classified UNKNOWN_ERROR.
func ParseStageError(err error) (ErrorCode, string) {
	if err == nil {
		return "", ""
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Code, stageErr.Detail
	}

	msg := err.Error()
	if prefix, detail, found := strings.Cut(msg, ":"); found {
		code := ErrorCode(strings.TrimSpace(prefix))
		switch code {
		case CodeValidationError, CodeProviderTimeout, CodeProviderUnavailable,
			CodeRateLimited, CodeWPAuthFailed, CodeUnknownError:
			return code, strings.TrimSpace(detail)
		}
	}

	return CodeUnknownError, msg
}

// TaskErrorFrom converts any error into the registry's task error shape.
func TaskErrorFrom(err error) *TaskError {
	code, detail := ParseStageError(err)

	return &TaskError{Code: string(code), Message: detail, Retriable: code.Retriable()}
}
