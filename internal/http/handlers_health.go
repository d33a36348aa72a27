package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	healthResponse      = `{"status":"ok"}`
	drainingResponse    = `{"status":"draining"}`
	unavailableResponse = `{"status":"unavailable"}`

	healthCheckTimeout = 2 * time.Second
)

// healthHandler answers readiness/liveness checks. It reports 503 once the service is draining
// so load balancers stop routing submissions to it, and when check reports the result store
// unreachable.
func healthHandler(draining func() bool, check func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code, body := http.StatusOK, healthResponse
		switch {
		case draining != nil && draining():
			code, body = http.StatusServiceUnavailable, drainingResponse
		case check != nil:
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				logger.WarnContext(r.Context(), "result store health check failed", "error", err)
				code, body = http.StatusServiceUnavailable, unavailableResponse
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.WriteString(w, body); err != nil {
			// Nothing more to do if the client connection is gone.
			return
		}
	}
}
