package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/surveystats/internal/errors"
)

// StatusFor maps an application error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.IsConflict(err):
		return http.StatusConflict
	case apperrors.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case apperrors.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err. Internal details are logged, not returned to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := StatusFor(err)
	body := ErrorBody{Reason: reasonFor(err), Field: apperrors.GetField(err)}
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err)
		body = ErrorBody{Reason: http.StatusText(code)}
	}
	WriteError(w, code, body)
}

func reasonFor(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
