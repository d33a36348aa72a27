// Package errors defines the application error taxonomy shared by the service and HTTP layers.
//
// Every error carries an ErrorCode. The package-level sentinels match any AppError with the
// same code, so callers test categories with the standard library:
//
//	if errors.Is(err, apperrors.ErrNotFound) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	ErrCodeNotFound    ErrorCode = "not_found"
	ErrCodeConflict    ErrorCode = "conflict"
	ErrCodeValidation  ErrorCode = "validation"
	ErrCodeUnavailable ErrorCode = "unavailable" // not accepting work, e.g. while shutting down
	ErrCodeInternal    ErrorCode = "internal"
	ErrCodeTimeout     ErrorCode = "timeout"
	ErrCodeCanceled    ErrorCode = "canceled"
)

// Category sentinels for errors.Is.
var (
	ErrNotFound    = &AppError{Code: ErrCodeNotFound}
	ErrConflict    = &AppError{Code: ErrCodeConflict}
	ErrValidation  = &AppError{Code: ErrCodeValidation}
	ErrUnavailable = &AppError{Code: ErrCodeUnavailable}
	ErrInternal    = &AppError{Code: ErrCodeInternal}
	ErrTimeout     = &AppError{Code: ErrCodeTimeout}
	ErrCanceled    = &AppError{Code: ErrCodeCanceled}
)

// AppError is a categorized error with a client-safe message and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input field for validation errors.
	Field string
}

func (e *AppError) Error() string {
	switch {
	case e.Cause != nil && e.Message != "":
		return e.Message + ": " + e.Cause.Error()
	case e.Cause != nil:
		return e.Cause.Error()
	case e.Message != "":
		return e.Message
	default:
		return string(e.Code)
	}
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a bare sentinel of the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Message != "" || t.Cause != nil || t.Field != "" {
		return false
	}
	return t.Code == e.Code
}

// New returns an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func NotFound(message string) *AppError    { return New(ErrCodeNotFound, message) }
func Unavailable(message string) *AppError { return New(ErrCodeUnavailable, message) }

func Validationf(format string, args ...any) *AppError {
	return Newf(ErrCodeValidation, format, args...)
}

// ValidationField creates a validation error for a specific input field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Wrap attaches a code and message to err. It returns nil for a nil err.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
func IsInternal(err error) bool    { return errors.Is(err, ErrInternal) }
func IsTimeout(err error) bool     { return errors.Is(err, ErrTimeout) }
func IsCanceled(err error) bool    { return errors.Is(err, ErrCanceled) }

// IsTransient reports failures worth retrying: unavailable or timed-out backends and
// network timeouts. Caller cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || IsCanceled(err) {
		return false
	}
	if IsUnavailable(err) || IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetCode returns the code of the outermost AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the offending field of the outermost AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
