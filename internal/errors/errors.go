package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Caller mistakes
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"

	// Environment not ready
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrCodeUnavailable        ErrorCode = "UNAVAILABLE"

	// Resource
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeCorrupt      ErrorCode = "CORRUPT"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// Access
	ErrCodeForbidden ErrorCode = "FORBIDDEN"

	// Internal
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternal          ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func InvalidInput(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

func ValidationError(message string, problems []string) *AppError {
	return New(ErrCodeValidation, message).WithDetails(problems)
}

// PreconditionFailed aggregates every failing precondition into Details so the
// caller can show the full remediation list at once.
func PreconditionFailed(problems []string) *AppError {
	return New(ErrCodePreconditionFailed, "Preconditions non remplies").WithDetails(problems)
}

func Unavailable(message string) *AppError {
	return New(ErrCodeUnavailable, message)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

func Corrupt(message string, cause error) *AppError {
	return Wrap(ErrCodeCorrupt, message, cause)
}

func InvalidState(message string) *AppError {
	return New(ErrCodeInvalidState, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func ResourceExhausted(message string) *AppError {
	return New(ErrCodeResourceExhausted, message)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("Erreur du service externe: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// Problems returns the aggregated messages carried in Details, if any.
func Problems(err error) []string {
	appErr, ok := AsAppError(err)
	if !ok {
		return nil
	}
	if list, ok := appErr.Details.([]string); ok {
		return list
	}
	return nil
}
