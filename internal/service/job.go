package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/target/surveystats/internal/core"
	domainjob "github.com/target/surveystats/internal/domain/job"
	"github.com/target/surveystats/internal/domain/model"
	apperrors "github.com/target/surveystats/internal/errors"
)

// JobStateDeps groups the shared in-process job state.
type JobStateDeps struct {
	Queue    core.JobQueue     // Required: pending jobs
	Registry core.JobRegistry  // Required: job statuses
	Shutdown *domainjob.Signal // Required: graceful shutdown flag shared with the workers
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	State   JobStateDeps     // Required
	Results core.ResultStore // Required: artifact store the workers write to
	Workers core.WorkerPool  // Optional: when set, Shutdown waits for the pool to exit
	Logger  *slog.Logger     // Optional: structured logger

	// LastJobID is the highest id already present in Results. New ids continue after it
	// so a restarted process never reads an artifact written by an earlier one.
	LastJobID int64
}

// JobService is the entry point for submitting aggregation jobs and observing their results.
type JobService struct {
	queue    core.JobQueue
	registry core.JobRegistry
	shutdown *domainjob.Signal
	results  core.ResultStore
	workers  core.WorkerPool
	logger   *slog.Logger

	// mu orders submissions against the start of shutdown: Submit holds it shared,
	// Shutdown exclusively, so no job is enqueued after the signal is observed.
	mu     sync.RWMutex
	nextID atomic.Int64
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	switch {
	case opts.State.Queue == nil:
		return nil, errors.New("JobQueue is required")
	case opts.State.Registry == nil:
		return nil, errors.New("JobRegistry is required")
	case opts.State.Shutdown == nil:
		return nil, errors.New("shutdown signal is required")
	case opts.Results == nil:
		return nil, errors.New("ResultStore is required")
	case opts.LastJobID < 0:
		return nil, errors.New("LastJobID must not be negative")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	svc := &JobService{
		queue:    opts.State.Queue,
		registry: opts.State.Registry,
		shutdown: opts.State.Shutdown,
		results:  opts.Results,
		workers:  opts.Workers,
		logger:   logger.With("component", "job_service"),
	}
	svc.nextID.Store(opts.LastJobID)
	return svc, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// AttachWorkers sets the pool Shutdown waits on. It is used when the pool is built after the service.
func (s *JobService) AttachWorkers(workers core.WorkerPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = workers
}

// Submit validates and enqueues a job, returning its id.
// It fails with an Unavailable error once shutdown has begun.
func (s *JobService) Submit(ctx context.Context, kind model.JobKind, params model.JobParams) (int64, error) {
	// The dataset loader trims every cell, so trimmed parameters still match exactly.
	params.Question = strings.TrimSpace(params.Question)
	params.State = strings.TrimSpace(params.State)
	if err := validateSubmission(kind, params); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.shutdown.Triggered() {
		return 0, apperrors.Unavailable("Server is shutting down")
	}

	id := s.nextID.Add(1)
	s.registry.SetStatus(id, model.JobStatusRunning)
	s.queue.Enqueue(model.Job{
		ID:          id,
		Kind:        kind,
		Params:      params,
		SubmittedAt: time.Now().UTC(),
	})

	s.logger.InfoContext(ctx, "job submitted",
		"job_id", id,
		"job_kind", kind,
		"question", params.Question,
		"state", params.State)
	return id, nil
}

func validateSubmission(kind model.JobKind, params model.JobParams) error {
	if !kind.Valid() {
		return apperrors.Validationf("unsupported job kind %q", kind)
	}
	if params.Question == "" {
		return apperrors.ValidationField("question", "question is required")
	}
	if kind.RequiresState() && params.State == "" {
		return apperrors.ValidationField("state", "state is required")
	}
	return nil
}

// Get returns the current view of a job. Done jobs carry their artifact when one was produced.
func (s *JobService) Get(ctx context.Context, id int64) (*model.JobView, error) {
	status, err := s.registry.GetStatus(id)
	if errors.Is(err, model.ErrJobNotFound) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Job ID not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d status: %w", id, err)
	}

	view := &model.JobView{ID: id, Status: status}
	if status != model.JobStatusDone {
		return view, nil
	}

	artifact, err := s.results.Read(ctx, id)
	switch {
	case errors.Is(err, model.ErrResultNotFound):
		return view, nil
	case err != nil:
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "read result for job %d", id)
	}
	view.Artifact = artifact
	return view, nil
}

// ListJobs returns every job and its status in submission order.
func (s *JobService) ListJobs() []model.JobState {
	return s.registry.List()
}

// PendingCount reports how many jobs are still queued.
func (s *JobService) PendingCount() int {
	return s.queue.Len()
}

// Health checks the result store when it depends on an external server or file.
func (s *JobService) Health(ctx context.Context) error {
	if hc, ok := s.results.(core.HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

// IsShuttingDown reports whether shutdown has begun.
func (s *JobService) IsShuttingDown() bool {
	return s.shutdown.Triggered()
}

// Shutdown stops accepting submissions and blocks until the worker pool has drained the queue
// and exited. It reports whether the queue was empty at completion. If ctx ends first the
// workers keep draining in the background and ctx.Err() is returned.
func (s *JobService) Shutdown(ctx context.Context) (bool, error) {
	s.mu.Lock()
	first := !s.shutdown.Triggered()
	s.shutdown.Trigger()
	workers := s.workers
	s.mu.Unlock()

	if first {
		s.logger.InfoContext(ctx, "graceful shutdown started", "pending", s.queue.Len())
	}

	if workers != nil {
		select {
		case <-workers.Done():
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	drained := s.queue.Len() == 0
	s.logger.InfoContext(ctx, "graceful shutdown finished", "drained", drained)
	return drained, nil
}
