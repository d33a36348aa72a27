package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	apperrors "github.com/target/surveystats/internal/errors"
)

type customErr struct{}

func (*customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: fmt.Errorf("write: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "app error", err: apperrors.Unavailable("store down"), want: "unavailable"},
		{name: "wrapped app error", err: fmt.Errorf("read: %w", apperrors.NotFound("missing")), want: "not_found"},
		{name: "pointer type", err: fmt.Errorf("boom: %w", &customErr{}), want: "errors_customerr"},
		{name: "path error", err: &fs.PathError{Op: "open", Path: "x", Err: errors.ErrUnsupported}, want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
