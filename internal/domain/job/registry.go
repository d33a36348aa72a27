package job

import (
	"cmp"
	"slices"
	"sync"

	"github.com/target/surveystats/internal/domain/model"
)

// Registry tracks the lifecycle status of every submitted job.
type Registry struct {
	mu       sync.RWMutex
	statuses map[int64]model.JobStatus
	order    []int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{statuses: make(map[int64]model.JobStatus)}
}

// SetStatus records status for id. A job that reached done stays done.
func (r *Registry) SetStatus(id int64, status model.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.statuses[id]
	if !ok {
		r.statuses[id] = status
		r.order = append(r.order, id)
		return
	}
	if prev == model.JobStatusDone {
		return
	}
	r.statuses[id] = status
}

// GetStatus returns the status for id or model.ErrJobNotFound.
func (r *Registry) GetStatus(id int64) (model.JobStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.statuses[id]
	if !ok {
		return "", model.ErrJobNotFound
	}
	return status, nil
}

// List returns a snapshot of every job ordered by id, which is submission order.
func (r *Registry) List() []model.JobState {
	r.mu.RLock()
	out := make([]model.JobState, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, model.JobState{ID: id, Status: r.statuses[id]})
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.JobState) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Len reports how many jobs have been registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
