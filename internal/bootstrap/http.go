package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/target/surveystats/config"
	httpx "github.com/target/surveystats/internal/http"
)

// HTTPServerConfig contains configuration for the API and metrics servers.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives the error of a server that stops unexpectedly. Optional.
	ErrCh chan<- error
}

// StartHTTPServer binds the API listener and serves the job routes in the background.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Services.Jobs == nil {
		return nil, errors.New("http server requires the job service")
	}
	logger := loggerOrDefault(cfg.Logger)
	appCfg := appConfigOrDefault(cfg.Config)

	handler := httpx.NewRouter(httpx.RouterServices{
		Jobs:   cfg.Services.Jobs,
		Logger: logger,
	})

	return startServer(serverOptions{
		name:              "http",
		addr:              appCfg.HTTP.Addr,
		handler:           handler,
		maxConnections:    appCfg.HTTP.MaxConnections,
		readHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		logger:            logger,
		errCh:             cfg.ErrCh,
	})
}

// StartMetricsServer serves the Prometheus registry on /metrics.
func StartMetricsServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Services.Observability.Prometheus == nil {
		return nil, errors.New("metrics server requires the prometheus sink")
	}
	logger := loggerOrDefault(cfg.Logger)
	appCfg := appConfigOrDefault(cfg.Config)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", cfg.Services.Observability.Prometheus.Handler())

	return startServer(serverOptions{
		name:              "metrics",
		addr:              appCfg.Observability.Prometheus.Addr,
		handler:           mux,
		readHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		logger:            logger,
		errCh:             cfg.ErrCh,
	})
}

type serverOptions struct {
	name              string
	addr              string
	handler           http.Handler
	maxConnections    int
	readHeaderTimeout time.Duration
	logger            *slog.Logger
	errCh             chan<- error
}

func startServer(opts serverOptions) (*http.Server, error) {
	// Guard against empty addr to avoid listening on Go default
	if opts.addr == "" {
		opts.addr = ":8080"
	}

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s server on %s: %w", opts.name, opts.addr, err)
	}
	if opts.maxConnections > 0 {
		ln = netutil.LimitListener(ln, opts.maxConnections)
	}

	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           opts.handler,
		ReadHeaderTimeout: opts.readHeaderTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		opts.logger.Info("starting "+opts.name+" server",
			"addr", server.Addr,
			"max_connections", opts.maxConnections)
		err := server.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		opts.logger.Error(opts.name+" server failed", "error", err)
		if opts.errCh != nil {
			select {
			case opts.errCh <- fmt.Errorf("%s server: %w", opts.name, err):
			default:
			}
		}
	}()

	return server, nil
}

// ShutdownConfig contains dependencies for server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Name    string
	Logger  *slog.Logger
}

// ShutdownHTTPServer stops accepting connections and waits for in-flight requests.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	logger := loggerOrDefault(cfg.Logger)
	name := cfg.Name
	if name == "" {
		name = "http"
	}

	logger.Info("shutting down " + name + " server")

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s server: %w", name, err)
	}

	logger.Info(name + " server stopped")
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func appConfigOrDefault(cfg *config.AppConfig) *config.AppConfig {
	if cfg == nil {
		return &config.AppConfig{}
	}
	return cfg
}
