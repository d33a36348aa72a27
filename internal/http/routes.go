package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/surveystats/internal/domain/model"
	"github.com/target/surveystats/internal/http/validation"
	"github.com/target/surveystats/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs   *service.JobService
	Logger *slog.Logger // optional
}

// NewRouter creates and configures the API router with its middleware stack.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	mux := http.NewServeMux()
	h := &JobHandlers{Svc: services.Jobs, Validator: validation.New(), Logger: logger}

	routes := registerJobRoutes(mux, h)
	health := healthHandler(services.Jobs.IsShuttingDown, services.Jobs.Health, logger)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	routes = append(routes, "GET /healthz")

	index := indexHandler(routes)
	mux.Handle("GET /{$}", index)
	mux.Handle("GET /index", index)

	return Chain(mux,
		Logging(logger),
		Recover(logger),
		RejectWritesWhenDraining(services.Jobs.IsShuttingDown),
	)
}

// registerJobRoutes mounts one POST route per job kind plus the read endpoints, returning their patterns.
func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) []string {
	var routes []string
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, fn)
		routes = append(routes, pattern)
	}

	for _, kind := range model.JobKinds() {
		handle("POST /api/"+string(kind), h.Submit(kind))
	}
	handle("GET /api/jobs", h.Jobs)
	handle("GET /api/num_jobs", h.NumJobs)
	handle("GET /api/get_results/{id}", h.GetResults)
	handle("GET /api/graceful_shutdown", h.GracefulShutdown)
	return routes
}
