// Package core defines the contracts between the job service, the worker pool and the data layer.
package core

import (
	"context"
	"time"

	"github.com/target/surveystats/internal/domain/model"
)

// JobQueue is the FIFO of pending jobs shared by the submission path and the workers.
type JobQueue interface {
	Enqueue(j model.Job)
	// Dequeue waits at most timeout for a job. It returns job.ErrQueueEmpty when none arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (model.Job, error)
	Len() int
}

// JobRegistry maps job ids to their lifecycle status.
type JobRegistry interface {
	SetStatus(id int64, status model.JobStatus)
	// GetStatus returns model.ErrJobNotFound for ids that were never registered.
	GetStatus(id int64) (model.JobStatus, error)
	List() []model.JobState
}

// ResultStore persists one artifact per job.
type ResultStore interface {
	Write(ctx context.Context, id int64, artifact []byte) error
	// Read returns model.ErrResultNotFound when the job produced no artifact.
	Read(ctx context.Context, id int64) ([]byte, error)
}

// ResultCatalog is implemented by result stores that keep artifacts across restarts.
type ResultCatalog interface {
	// LastJobID returns the highest job id with a stored artifact, or 0 when the store is empty.
	LastJobID(ctx context.Context) (int64, error)
}

// HealthChecker is implemented by result stores that depend on a reachable server or file.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// WorkerPool exposes the completion of the worker goroutines.
type WorkerPool interface {
	// Done is closed after every worker has exited.
	Done() <-chan struct{}
}
