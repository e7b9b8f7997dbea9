package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a classified failure of an external source.
type ErrorCode string

const (
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodeContextCancelled  ErrorCode = "context_cancelled"
	ErrCodeMissingColumn     ErrorCode = "missing_column"
	ErrCodeParseError        ErrorCode = "parse_error"
	ErrCodeSourceUnavailable ErrorCode = "source_unavailable"
	ErrCodeRateLimit         ErrorCode = "rate_limit"
	ErrCodeProcessingError   ErrorCode = "processing_error"
)

// SourceError is a structured error for failures of history stores,
// calendars and the brief drafter.
type SourceError struct {
	Code    ErrorCode
	Source  string
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Source, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// ClassifySourceError inspects an error returned by source and returns a
// *SourceError with the appropriate code. An error that is already a
// *SourceError is returned unchanged. Unrecognised errors are classified
// as ErrCodeProcessingError.
func ClassifySourceError(err error, source string) *SourceError {
	if err == nil {
		return nil
	}

	var existing *SourceError
	if errors.As(err, &existing) {
		return existing
	}

	se := &SourceError{
		Source:  source,
		Message: err.Error(),
		Cause:   err,
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		se.Code = ErrCodeTimeout
		se.Message = "operation timed out"
		return se
	case errors.Is(err, context.Canceled):
		se.Code = ErrCodeContextCancelled
		se.Message = "operation cancelled"
		return se
	case errors.Is(err, ErrMissingColumn):
		se.Code = ErrCodeMissingColumn
		return se
	case errors.Is(err, ErrSourceUnavailable):
		se.Code = ErrCodeSourceUnavailable
		return se
	}

	lower := strings.ToLower(err.Error())

	// Rate limit patterns
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota exceeded") {
		se.Code = ErrCodeRateLimit
		return se
	}

	// Connectivity patterns
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") || strings.Contains(lower, "no such file") || strings.Contains(lower, "unavailable") || strings.Contains(lower, "503") {
		se.Code = ErrCodeSourceUnavailable
		return se
	}

	// Malformed data patterns
	if strings.Contains(lower, "parse error") || strings.Contains(lower, "wrong number of fields") || strings.Contains(lower, "bare \"") || strings.Contains(lower, "invalid character") || errors.Is(err, ErrValidation) {
		se.Code = ErrCodeParseError
		return se
	}

	se.Code = ErrCodeProcessingError
	return se
}

// IsTimeout returns true if the error is a classified timeout.
func IsTimeout(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Code == ErrCodeTimeout
	}
	return false
}

// IsErrorRetryable returns true if the error is likely transient and worth retrying.
// This function checks the error code using the ErrorCodeRegistry.
func IsErrorRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return IsRetryable(se.Code)
	}
	return false
}
