package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/surveystats/config"
	"github.com/target/surveystats/internal/adapters/jobrunner"
	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/domain/aggregate"
	domainjob "github.com/target/surveystats/internal/domain/job"
	"github.com/target/surveystats/internal/domain/model"
	"github.com/target/surveystats/internal/observability/metrics"
	promsink "github.com/target/surveystats/internal/observability/prometheus"
	"github.com/target/surveystats/internal/observability/statsd"
	"github.com/target/surveystats/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	Runner        *jobrunner.Runner
	Engine        *aggregate.Engine
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Statsd     *statsd.Client
	Prometheus *promsink.Sink
	// MetricsSink fans out to every configured sink. Nil when none is.
	MetricsSink   statsd.Sink
	MetricsConfig config.ObservabilityMetricsConfig
}

// Close releases the metric sinks.
func (c ServiceContainer) Close() error {
	return c.Observability.Statsd.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config  *config.AppConfig
	Dataset *model.Dataset
	Results core.ResultStore
	Logger  *slog.Logger
	// LastJobID seeds the job id counter, normally ResultBackend.LastJobID.
	LastJobID int64
}

// buildObservability configures the StatsD client and, when the metrics service is
// enabled, the Prometheus sink.
func buildObservability(logger *slog.Logger, cfg *config.AppConfig) ObservabilityContainer {
	obs := ObservabilityContainer{MetricsConfig: cfg.Observability.Metrics}
	var sinks []statsd.Sink

	if cfg.Observability.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Observability.Metrics.StatsdAddress,
			Prefix:  cfg.Observability.Metrics.Prefix,
			Logger:  logger,

			MaxPacketSize: cfg.Observability.Metrics.MaxPacketSize,
			FlushInterval: cfg.Observability.Metrics.FlushInterval,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			obs.Statsd = client
			sinks = append(sinks, client)
		}
	}

	if cfg.IsMetricsServerEnabled() {
		obs.Prometheus = promsink.NewSink(promsink.Options{
			Namespace: cfg.Observability.Prometheus.Namespace,
			Logger:    logger,
		})
		sinks = append(sinks, obs.Prometheus)
	}

	obs.MetricsSink = metrics.NewFanout(sinks...)
	return obs
}

// NewServices wires the job state, the aggregation engine, the job service and the worker pool.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	switch {
	case deps == nil || deps.Config == nil:
		return ServiceContainer{}, errors.New("service config is required")
	case deps.Dataset == nil:
		return ServiceContainer{}, errors.New("dataset is required")
	case deps.Results == nil:
		return ServiceContainer{}, errors.New("result store is required")
	}
	logger := loggerOrDefault(deps.Logger)

	obs := buildObservability(logger, deps.Config)

	state := service.JobStateDeps{
		Queue:    domainjob.NewQueue(),
		Registry: domainjob.NewRegistry(),
		Shutdown: domainjob.NewSignal(),
	}
	engine := aggregate.NewEngine(deps.Dataset)

	jobs, err := service.NewJobService(service.JobServiceOptions{
		State:     state,
		Results:   deps.Results,
		Logger:    logger,
		LastJobID: deps.LastJobID,
	})
	if err != nil {
		return ServiceContainer{}, errors.Join(fmt.Errorf("job service: %w", err), obs.Statsd.Close())
	}

	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Queue:         state.Queue,
		Registry:      state.Registry,
		Results:       deps.Results,
		Engine:        engine,
		Shutdown:      state.Shutdown,
		Logger:        logger,
		Workers:       deps.Config.Pool.Workers,
		PollInterval:  deps.Config.Pool.PollInterval,
		WriteAttempts: deps.Config.Pool.WriteAttempts,
		WriteBackoff:  deps.Config.Pool.WriteBackoff,
		Metrics:       obs.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, errors.Join(fmt.Errorf("job runner: %w", err), obs.Statsd.Close())
	}
	jobs.AttachWorkers(runner)

	return ServiceContainer{
		Jobs:          jobs,
		Runner:        runner,
		Engine:        engine,
		Observability: obs,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for the runner to stop after cancellation.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

func launchBackground(deps *serviceStartupDeps, descriptor backgroundService) backgroundServiceHandle {
	ctx := deps.ctx
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := descriptor.start(ctx)
		if err == nil || (errors.Is(err, context.Canceled) && ctx.Err() != nil) {
			return
		}
		errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
		select {
		case deps.errCh <- errMsg:
		default:
			deps.logger.WarnContext(ctx, "dropping background service error",
				"service", descriptor.name,
				"error", errMsg)
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name)
	return backgroundServiceHandle{name: descriptor.name, done: done}
}

// serverHandle pairs a running server with its service name.
type serverHandle struct {
	name   string
	server *http.Server
}

// startServers starts the enabled listeners. On failure the already started ones are returned
// alongside the error so the caller can stop them.
func startServers(deps *serviceStartupDeps) ([]serverHandle, error) {
	httpCfg := &HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
		ErrCh:    deps.errCh,
	}

	var servers []serverHandle
	if deps.enabledServices[config.ServiceModeHTTP] {
		srv, err := StartHTTPServer(httpCfg)
		if err != nil {
			return servers, err
		}
		servers = append(servers, serverHandle{name: string(config.ServiceModeHTTP), server: srv})
	}
	if deps.enabledServices[config.ServiceModeMetrics] {
		srv, err := StartMetricsServer(httpCfg)
		if err != nil {
			return servers, err
		}
		servers = append(servers, serverHandle{name: string(config.ServiceModeMetrics), server: srv})
	}
	return servers, nil
}

// RunServicesWithShutdown starts the worker pool and the enabled servers and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return runServices(cfg, quit)
}

func runServices(cfg *ServiceOrchestrationConfig, quit <-chan os.Signal) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	if cfg.Services.Jobs == nil || cfg.Services.Runner == nil {
		return errors.New("service orchestration config missing job service or runner")
	}
	logger := loggerOrDefault(cfg.Logger)

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           make(chan error, errorChannelBufferSize(enabledServices)),
	}

	runner := launchBackground(deps, backgroundService{
		name:  "job runner",
		start: cfg.Services.Runner.Run,
	})

	shutdown := shutdownConfig{
		cancel:  cancel,
		errCh:   deps.errCh,
		quit:    quit,
		jobs:    cfg.Services.Jobs,
		timeout: cfg.Config.HTTP.ShutdownTimeout,
		logger:  logger,
		runner:  runner,
	}

	servers, err := startServers(deps)
	shutdown.services = servers
	if err != nil {
		return errors.Join(err, gracefulStop(shutdown))
	}

	return waitForShutdown(shutdown)
}

// errorChannelCapacity counts the components that may report a failure: the enabled servers
// plus the job runner.
func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 1
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel   context.CancelFunc
	errCh    <-chan error
	quit     <-chan os.Signal
	jobs     *service.JobService
	timeout  time.Duration
	logger   *slog.Logger
	runner   backgroundServiceHandle
	services []serverHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	select {
	case sig := <-cfg.quit:
		cfg.logger.Info("shutting down services...", "signal", sig.String())
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains the job queue, then stops the servers and the worker pool.
// Servers keep answering status queries while the queue drains.
func gracefulStop(cfg shutdownConfig) error {
	var errs []error

	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), timeout)
	drained, err := cfg.jobs.Shutdown(drainCtx)
	cancelDrain()
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("drain job queue: %w", err))
	case !drained:
		cfg.logger.Warn("job queue not empty after shutdown", "pending", cfg.jobs.PendingCount())
	}

	for _, h := range cfg.services {
		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: context.Background(),
			Server:  h.server,
			Name:    h.name,
			Logger:  cfg.logger,
		}); err != nil {
			errs = append(errs, err)
		}
	}

	// Workers that are still running after the drain timeout abandon the queue.
	cfg.cancel()
	waitForService(cfg.runner.done, cfg.runner.name, cfg.logger)

	return errors.Join(errs...)
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
