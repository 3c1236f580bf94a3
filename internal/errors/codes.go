// Package errors defines the coded errors surfaced across the timetable
// pipeline. Upstream failures keep their code all the way to the caller so an
// empty timetable is never confused with a failed fetch.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the upstream rejected our credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeEmailIntent indicates the text is an email request, not a schedule query.
	ErrCodeEmailIntent ErrorCode = "EMAIL_INTENT"
	// ErrCodeServiceUnavailable indicates a collaborator is not configured.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeUpstreamUnavailable indicates a network error or a non-OK upstream status.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrCodeUpstreamMalformed indicates the upstream answered with something we cannot decode.
	ErrCodeUpstreamMalformed ErrorCode = "UPSTREAM_MALFORMED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// AppError represents a structured error.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsUpstream reports whether the code describes a failure of a remote collaborator.
func (c ErrorCode) IsUpstream() bool {
	switch c {
	case ErrCodeUnauthorized, ErrCodeUpstreamUnavailable, ErrCodeUpstreamMalformed, ErrCodeTimeout:
		return true
	default:
		return false
	}
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AppError {
	return &AppError{Code: ErrCodeInvalidArgument, Message: msg}
}

// EmailIntent creates the error returned when schedule parsing is refused.
func EmailIntent() *AppError {
	return &AppError{Code: ErrCodeEmailIntent, Message: "text is an email request; schedule date parsing skipped"}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// UpstreamUnavailable creates an upstream unavailable error.
func UpstreamUnavailable(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodeUpstreamUnavailable, Message: msg, Cause: cause}
}

// UpstreamMalformed creates an upstream malformed-response error.
func UpstreamMalformed(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodeUpstreamMalformed, Message: msg, Cause: cause}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *AppError {
	return &AppError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *AppError {
	return &AppError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or any error it wraps, carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AppError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return defaultCode
}
