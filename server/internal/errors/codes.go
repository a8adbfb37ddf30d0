package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for scoring operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeCacheUnavailable indicates the cache backend is not reachable.
	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// ErrCodeEvaluationFailed indicates a criterion evaluation failure.
	ErrCodeEvaluationFailed ErrorCode = "EVALUATION_FAILED"
	// ErrCodeBulkScoringFailed indicates a bulk scoring request failure.
	ErrCodeBulkScoringFailed ErrorCode = "BULK_SCORING_FAILED"
	// ErrCodeInitializationFailed indicates a required collaborator failed to start.
	ErrCodeInitializationFailed ErrorCode = "INITIALIZATION_FAILED"
	// ErrCodeServiceUnavailable indicates an advisory collaborator is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// ScoringError represents a structured error for scoring operations.
type ScoringError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ScoringError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ScoringError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *ScoringError) WithContext(key string, value interface{}) *ScoringError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *ScoringError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ScoringError {
	return &ScoringError{Code: ErrCodeInvalidArgument, Message: msg}
}

// CacheUnavailable creates a cache unavailable error.
func CacheUnavailable(msg string, cause error) *ScoringError {
	return &ScoringError{Code: ErrCodeCacheUnavailable, Message: msg, Cause: cause}
}

// EvaluationFailed creates an evaluation failed error.
func EvaluationFailed(criterion string, cause error) *ScoringError {
	return &ScoringError{
		Code:    ErrCodeEvaluationFailed,
		Message: fmt.Sprintf("criterion evaluation failed: %s", criterion),
		Cause:   cause,
	}
}

// BulkScoringFailed creates a bulk scoring failed error.
func BulkScoringFailed(msg string, cause error) *ScoringError {
	return &ScoringError{Code: ErrCodeBulkScoringFailed, Message: msg, Cause: cause}
}

// InitializationFailed creates an initialization failed error.
func InitializationFailed(msg string, cause error) *ScoringError {
	return &ScoringError{Code: ErrCodeInitializationFailed, Message: msg, Cause: cause}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *ScoringError {
	return &ScoringError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *ScoringError {
	return &ScoringError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *ScoringError {
	return &ScoringError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *ScoringError {
	return &ScoringError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if sErr, ok := err.(*ScoringError); ok {
		return sErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ScoringError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if sErr, ok := err.(*ScoringError); ok {
		return sErr.Code
	}
	return defaultCode
}
