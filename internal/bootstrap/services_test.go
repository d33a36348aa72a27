package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/surveystats/config"
	"github.com/target/surveystats/internal/domain/model"
	"github.com/target/surveystats/internal/testutil"
)

const obesityQuestion = "Percent of adults aged 18 years and older who have obesity"

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "runner only", want: 1},
		{name: "http", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 2},
		{name: "http and metrics", modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeMetrics}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}
			assert.Equal(t, tt.want, errorChannelCapacity(enabled))
			assert.Equal(t, tt.want+1, errorChannelBufferSize(enabled))
		})
	}
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Equal(t, []string{"http", "metrics"}, GetEnabledServices(&config.AppConfig{Services: "metrics, http"}))

	require.Error(t, ValidateServiceConfig(nil))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	require.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "http"}))
}

func TestConfigureLoggerWritesRotatingFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "surveystats.log")
	logger, closer := configureLogger(io.Discard, config.LoggingConfig{
		Level:      "debug",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	})
	logger.Debug("debug line", "job_id", 7)
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(raw)
	assert.Contains(t, line, `"msg":"debug line"`)
	assert.Contains(t, line, `"job_id":7`)
	assert.Contains(t, line, `Z"`, "timestamps should be rendered in UTC")
}

func TestConfigureLoggerWithoutFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var sb strings.Builder
	logger, closer := configureLogger(&sb, config.LoggingConfig{Level: "warn"})
	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, closer.Close())

	assert.NotContains(t, sb.String(), "dropped")
	assert.Contains(t, sb.String(), "kept")
}

func TestOpenResultBackend_Local(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.ResultsConfig
	}{
		{name: "memory", cfg: config.ResultsConfig{Backend: config.ResultsBackendMemory}},
		{name: "file", cfg: config.ResultsConfig{Backend: config.ResultsBackendFile, Dir: filepath.Join(dir, "files")}},
		{
			name: "sqlite",
			cfg:  config.ResultsConfig{Backend: config.ResultsBackendSQLite, SQLitePath: filepath.Join(dir, "nested", "results.db")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := OpenResultBackend(ctx, &config.AppConfig{Results: tt.cfg}, slog.New(slog.DiscardHandler))
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, backend.Close()) })

			assert.Equal(t, tt.cfg.Backend, backend.Kind)
			require.NoError(t, backend.Store.Write(ctx, 1, []byte(`{"global_mean":20}`)))
			got, err := backend.Store.Read(ctx, 1)
			require.NoError(t, err)
			assert.JSONEq(t, `{"global_mean":20}`, string(got))
		})
	}
}

func TestRestartedServiceDoesNotReuseStoredArtifacts(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "results")
	cfg := &config.AppConfig{Results: config.ResultsConfig{Backend: config.ResultsBackendFile, Dir: dir}}
	cfg.Sanitize()
	cfg.Pool.Workers = 1
	cfg.Pool.PollInterval = 5 * time.Millisecond

	// A previous run left an artifact behind for job 1.
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.json"), []byte(`{"Texas":99}`), 0o600))

	backend, err := OpenResultBackend(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	assert.Equal(t, int64(1), backend.LastJobID)

	services, err := NewServices(&ServiceDeps{
		Config:    cfg,
		Dataset:   testutil.NewDataset().Row("California", obesityQuestion, 10).Build(),
		Results:   backend.Store,
		Logger:    slog.New(slog.DiscardHandler),
		LastJobID: backend.LastJobID,
	})
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- services.Runner.Run(ctx) }()

	id, err := services.Jobs.Submit(ctx, model.JobKindStateMean, model.JobParams{Question: obesityQuestion, State: "Nevada"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	drained, err := services.Jobs.Shutdown(shutdownCtx)
	require.NoError(t, err)
	assert.True(t, drained)
	require.NoError(t, <-runErr)

	view, err := services.Jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, view.Status)
	assert.Nil(t, view.Artifact)
}

func TestOpenResultBackend_S3RequiresBucket(t *testing.T) {
	cfg := &config.AppConfig{Results: config.ResultsConfig{Backend: config.ResultsBackendS3}}
	_, err := OpenResultBackend(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open s3 result store")
}

func TestNewServices_RequiresDependencies(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)

	_, err = NewServices(&ServiceDeps{Config: &config.AppConfig{}})
	require.Error(t, err)

	_, err = NewServices(&ServiceDeps{Config: &config.AppConfig{}, Dataset: testutil.NewDataset().Build()})
	require.Error(t, err)
}

func TestRunServices_DrainsQueueOnSignal(t *testing.T) {
	cfg := &config.AppConfig{Services: "http,metrics"}
	cfg.Sanitize()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.ShutdownTimeout = 5 * time.Second
	cfg.Observability.Prometheus.Addr = "127.0.0.1:0"
	cfg.Pool.Workers = 2
	cfg.Pool.PollInterval = 10 * time.Millisecond

	backend, err := OpenResultBackend(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ds := testutil.NewDataset().
		Row("California", obesityQuestion, 10).
		Row("California", obesityQuestion, 20).
		Row("Nevada", obesityQuestion, 30).
		Build()

	services, err := NewServices(&ServiceDeps{
		Config:  cfg,
		Dataset: ds,
		Results: backend.Store,
		Logger:  slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	require.NotNil(t, services.Observability.Prometheus)
	assert.Nil(t, services.Observability.Statsd)

	quit := make(chan os.Signal, 1)
	returned := make(chan error, 1)
	go func() {
		returned <- runServices(&ServiceOrchestrationConfig{
			Config:   cfg,
			Services: services,
			Logger:   slog.New(slog.DiscardHandler),
		}, quit)
	}()

	ctx := context.Background()
	var ids []int64
	for range 10 {
		id, err := services.Jobs.Submit(ctx, model.JobKindGlobalMean, model.JobParams{Question: obesityQuestion})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	quit <- syscall.SIGTERM
	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("runServices did not return after SIGTERM")
	}

	for _, id := range ids {
		view, err := services.Jobs.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusDone, view.Status)
		assert.JSONEq(t, `{"global_mean":20}`, string(view.Artifact))
	}
	assert.True(t, services.Jobs.IsShuttingDown())

	families, err := services.Observability.Prometheus.Registry().Gather()
	require.NoError(t, err)
	transitions := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "surveystats_job_transition_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "transition" {
					transitions[lp.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"started": 10, "completed": 10}, transitions)
}

func TestRunServices_ListenFailureStopsRunner(t *testing.T) {
	cfg := &config.AppConfig{Services: "http"}
	cfg.Sanitize()
	cfg.HTTP.Addr = "256.0.0.1:bad"
	cfg.HTTP.ShutdownTimeout = time.Second
	cfg.Pool.Workers = 1
	cfg.Pool.PollInterval = 10 * time.Millisecond

	services, err := NewServices(&ServiceDeps{
		Config:  cfg,
		Dataset: testutil.NewDataset().Build(),
		Results: mustMemoryBackend(t, cfg).Store,
		Logger:  slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	err = runServices(&ServiceOrchestrationConfig{Config: cfg, Services: services}, make(chan os.Signal))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen http server")

	select {
	case <-services.Runner.Done():
	case <-time.After(time.Second):
		t.Fatal("runner kept running after startup failure")
	}
}

func mustMemoryBackend(t *testing.T, cfg *config.AppConfig) *ResultBackend {
	t.Helper()
	backend, err := OpenResultBackend(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return backend
}
