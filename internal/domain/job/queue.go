package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/target/surveystats/internal/domain/model"
)

// ErrQueueEmpty is returned by Dequeue when no job arrived within the wait window.
var ErrQueueEmpty = errors.New("job queue empty")

// Queue is an unbounded FIFO of pending jobs, safe for concurrent producers and consumers.
type Queue struct {
	mu    sync.Mutex
	items []model.Job
	// ready holds at most one token and is signaled while items is non-empty.
	ready chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Enqueue appends j to the tail. It never blocks on consumers and never drops.
func (q *Queue) Enqueue(j model.Job) {
	q.mu.Lock()
	q.items = append(q.items, j)
	q.mu.Unlock()
	q.signal()
}

// Dequeue returns the head job, waiting up to timeout for one to arrive.
// It returns ErrQueueEmpty on timeout and ctx.Err() if ctx ends first.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (model.Job, error) {
	if j, ok := q.tryPop(); ok {
		return j, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return model.Job{}, ctx.Err()
		case <-timer.C:
			if j, ok := q.tryPop(); ok {
				return j, nil
			}
			return model.Job{}, ErrQueueEmpty
		case <-q.ready:
			if j, ok := q.tryPop(); ok {
				return j, nil
			}
		}
	}
}

// Len reports the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) tryPop() (model.Job, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return model.Job{}, false
	}
	j := q.items[0]
	q.items[0] = model.Job{}
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()

	// Pass the token on so another waiting consumer wakes for the rest.
	if remaining > 0 {
		q.signal()
	}
	return j, true
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
