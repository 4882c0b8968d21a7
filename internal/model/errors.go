package model

import "fmt"

// ErrorCode classifies pipeline failures so callers can distinguish a
// dropped message from user-visible data loss.
type ErrorCode string

const (
	ErrExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrPermissionDenied  ErrorCode = "PERMISSION_DENIED"
	ErrPersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	ErrInvalidPeriod     ErrorCode = "INVALID_PERIOD"
)

// PipelineError is a structured error for pipeline failures.
type PipelineError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *PipelineError) IsRetryable() bool {
	return e.Retryable
}

// NewPersistenceError wraps a store failure. Persistence failures are
// always surfaced distinctly: they imply data loss risk, not a bad input.
func NewPersistenceError(op string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrPersistenceFailed,
		Message:   fmt.Sprintf("%s did not durably commit", op),
		Retryable: true,
		Cause:     cause,
	}
}
