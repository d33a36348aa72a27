// Package jobrunner runs the worker pool that executes queued aggregation jobs.
package jobrunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/domain/aggregate"
	domainjob "github.com/target/surveystats/internal/domain/job"
	"github.com/target/surveystats/internal/domain/model"
	apperrors "github.com/target/surveystats/internal/errors"
	"github.com/target/surveystats/internal/observability/metrics"
	"github.com/target/surveystats/internal/observability/statsd"
)

// DefaultPollInterval bounds how long an idle worker waits before rechecking for shutdown.
const DefaultPollInterval = 100 * time.Millisecond

// Aggregator computes the outcome of one job. *aggregate.Engine satisfies it.
type Aggregator interface {
	Run(kind model.JobKind, params model.JobParams) aggregate.Outcome
}

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	Queue    core.JobQueue     // Required
	Registry core.JobRegistry  // Required
	Results  core.ResultStore  // Required
	Engine   Aggregator        // Required
	Shutdown *domainjob.Signal // Required: workers exit once it fires and the queue is empty

	Logger       *slog.Logger
	Workers      int           // number of worker goroutines; defaults to runtime.NumCPU()
	PollInterval time.Duration // defaults to DefaultPollInterval
	Metrics      statsd.Sink

	// WriteAttempts caps tries at a transiently failing result write; defaults to 1.
	WriteAttempts int
	// WriteBackoff is the first retry delay and doubles per attempt.
	WriteBackoff time.Duration
}

// Runner pulls jobs off the queue and executes them on a fixed set of workers.
type Runner struct {
	queue    core.JobQueue
	registry core.JobRegistry
	results  core.ResultStore
	engine   Aggregator
	shutdown *domainjob.Signal

	logger  *slog.Logger
	workers int
	poll    time.Duration
	metrics statsd.Sink

	writeAttempts int
	writeBackoff  time.Duration

	done     chan struct{}
	doneOnce sync.Once
}

var _ core.WorkerPool = (*Runner)(nil)

// NewRunner validates options and constructs a runner. Workers start on Run.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	switch {
	case opts.Queue == nil:
		return nil, errors.New("JobQueue is required")
	case opts.Registry == nil:
		return nil, errors.New("JobRegistry is required")
	case opts.Results == nil:
		return nil, errors.New("ResultStore is required")
	case opts.Engine == nil:
		return nil, errors.New("aggregation engine is required")
	case opts.Shutdown == nil:
		return nil, errors.New("shutdown signal is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	return &Runner{
		queue:    opts.Queue,
		registry: opts.Registry,
		results:  opts.Results,
		engine:   opts.Engine,
		shutdown: opts.Shutdown,
		logger:   logger.With("component", "job_runner"),
		workers:  workers,
		poll:     poll,
		metrics:  opts.Metrics,

		writeAttempts: max(opts.WriteAttempts, 1),
		writeBackoff:  max(opts.WriteBackoff, 0),

		done: make(chan struct{}),
	}, nil
}

// Workers reports the configured pool size.
func (r *Runner) Workers() int {
	return r.workers
}

// Done is closed once every worker has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Run starts the workers and blocks until they exit. Workers drain the queue after the
// shutdown signal fires; cancelling ctx abandons whatever is still queued.
func (r *Runner) Run(ctx context.Context) error {
	defer r.doneOnce.Do(func() { close(r.done) })

	r.logger.InfoContext(ctx, "starting job runner", "workers", r.workers, "poll_interval", r.poll)

	g, gctx := errgroup.WithContext(ctx)
	for i := range r.workers {
		g.Go(func() error {
			return r.workerLoop(gctx, i)
		})
	}
	err := g.Wait()

	r.logger.InfoContext(ctx, "job runner stopped", "pending", r.queue.Len(), "error", err)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (r *Runner) workerLoop(ctx context.Context, worker int) error {
	for {
		if r.shutdown.Triggered() && r.queue.Len() == 0 {
			return nil
		}

		job, err := r.queue.Dequeue(ctx, r.poll)
		switch {
		case err == nil:
			r.processJob(ctx, worker, job)
		case errors.Is(err, domainjob.ErrQueueEmpty):
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("dequeue: %w", err)
		}
	}
}

// processJob never fails the worker: errors and panics are logged and the job still reaches done.
func (r *Runner) processJob(ctx context.Context, worker int, job model.Job) {
	start := time.Now()
	log := r.logger.With("job_id", job.ID, "job_kind", job.Kind, "worker", worker)

	r.registry.SetStatus(job.ID, model.JobStatusRunning)
	metrics.EmitQueueDepth(r.metrics, r.queue.Len())
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		JobKind:    string(job.Kind),
		Transition: metrics.TransitionStarted,
	})

	outcome := r.aggregate(ctx, log, job)
	result := resultLabel(outcome)

	var writeErr error
	if outcome.HasArtifact() {
		writeErr = r.persist(ctx, log, job.ID, outcome.Artifact)
		if writeErr != nil {
			result = metrics.ResultError
			log.ErrorContext(ctx, "persist job result failed", "error", writeErr)
		}
	}
	if outcome.Kind == aggregate.OutcomeUnsupported {
		log.WarnContext(ctx, "unsupported job kind")
	}

	r.registry.SetStatus(job.ID, model.JobStatusDone)

	log.DebugContext(ctx, "job finished", "result", result, "duration", time.Since(start))
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		JobKind:    string(job.Kind),
		Transition: metrics.TransitionCompleted,
		Result:     result,
		Duration:   time.Since(start),
		Err:        writeErr,
	})
}

func (r *Runner) aggregate(ctx context.Context, log *slog.Logger, job model.Job) (out aggregate.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "aggregation panicked", "panic", rec)
			out = aggregate.Empty()
		}
	}()
	return r.engine.Run(job.Kind, job.Params)
}

// persist completes even when ctx is cancelled so a job is never marked done without its artifact.
// Transient store failures are retried with doubling backoff up to writeAttempts tries.
func (r *Runner) persist(ctx context.Context, log *slog.Logger, id int64, artifact *model.Artifact) error {
	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	backoff := r.writeBackoff
	for attempt := 1; ; attempt++ {
		err = r.results.Write(ctx, id, body)
		if err == nil {
			return nil
		}
		if attempt >= r.writeAttempts || !apperrors.IsTransient(err) {
			return fmt.Errorf("write artifact (attempt %d): %w", attempt, err)
		}
		log.WarnContext(ctx, "retrying result write", "attempt", attempt, "backoff", backoff, "error", err)
		time.Sleep(backoff)
		backoff *= 2
	}
}

func resultLabel(o aggregate.Outcome) string {
	switch o.Kind {
	case aggregate.OutcomeValue:
		return metrics.ResultSuccess
	case aggregate.OutcomeUnsupported:
		return metrics.ResultUnsupported
	default:
		return metrics.ResultEmpty
	}
}
