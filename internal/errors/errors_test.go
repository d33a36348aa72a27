package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("disk full")

	assert.Equal(t, "job not found", NotFound("job not found").Error())
	assert.Equal(t, "failed to write result: disk full", Wrap(cause, ErrCodeInternal, "failed to write result").Error())
	assert.Equal(t, "disk full", (&AppError{Code: ErrCodeInternal, Cause: cause}).Error())
	assert.Equal(t, "timeout", ErrTimeout.Error())
}

func TestAppError_IsMatchesSentinelsByCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", Unavailable("Server is shutting down"))

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
	// A non-sentinel target must match by identity only.
	assert.NotErrorIs(t, err, Unavailable("Server is shutting down"))
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrapf(cause, ErrCodeTimeout, "after %ds", 5)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeTimeout, err.Code)
	assert.Equal(t, "after 5s", err.Message)
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "message"))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		code    ErrorCode
		message string
		field   string
	}{
		{"not found", NotFound("job not found"), ErrCodeNotFound, "job not found", ""},
		{"newf", Newf(ErrCodeConflict, "job %d exists", 7), ErrCodeConflict, "job 7 exists", ""},
		{"validationf", Validationf("unsupported job kind %q", "median"), ErrCodeValidation, `unsupported job kind "median"`, ""},
		{"validation field", ValidationField("state", "state is required"), ErrCodeValidation, "state is required", "state"},
		{"unavailable", Unavailable("shutting down"), ErrCodeUnavailable, "shutting down", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.Equal(t, tt.field, tt.err.Field)
		})
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", Unavailable("server is shutting down"))

	checks := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"not found", IsNotFound, NotFound("x"), true},
		{"not found other code", IsNotFound, New(ErrCodeConflict, "x"), false},
		{"conflict", IsConflict, New(ErrCodeConflict, "x"), true},
		{"validation", IsValidation, ValidationField("question", "required"), true},
		{"unavailable wrapped", IsUnavailable, wrapped, true},
		{"internal", IsInternal, New(ErrCodeInternal, "x"), true},
		{"timeout", IsTimeout, &AppError{Code: ErrCodeTimeout}, true},
		{"canceled", IsCanceled, &AppError{Code: ErrCodeCanceled}, true},
		{"standard error", IsNotFound, errors.New("plain"), false},
		{"nil error", IsUnavailable, nil, false},
	}

	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.err))
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Unavailable("store down")))
	assert.True(t, IsTransient(fmt.Errorf("write: %w", New(ErrCodeTimeout, "slow"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", timeoutErr{})))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(ValidationField("state", "required")))
	assert.False(t, IsTransient(errors.New("disk full")))
}

func TestGetCodeAndField(t *testing.T) {
	err := fmt.Errorf("handler: %w", ValidationField("state", "state is required"))

	assert.Equal(t, ErrCodeValidation, GetCode(err))
	assert.Equal(t, "state", GetField(err))
	assert.Empty(t, GetCode(errors.New("plain")))
	assert.Empty(t, GetField(nil))
}
