package data

import (
	"context"
	"slices"
	"sync"

	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/domain/model"
)

// MemoryResultStore keeps artifacts in process memory.
type MemoryResultStore struct {
	mu        sync.RWMutex
	artifacts map[int64][]byte
}

// NewMemoryResultStore returns an empty in-memory store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{artifacts: make(map[int64][]byte)}
}

// Write stores a copy of artifact under id.
func (s *MemoryResultStore) Write(_ context.Context, id int64, artifact []byte) error {
	if err := validateJobID(id); err != nil {
		return err
	}
	s.mu.Lock()
	s.artifacts[id] = slices.Clone(artifact)
	s.mu.Unlock()
	return nil
}

// Read returns a copy of the artifact for id.
func (s *MemoryResultStore) Read(_ context.Context, id int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.artifacts[id]
	if !ok {
		return nil, model.ErrResultNotFound
	}
	return slices.Clone(b), nil
}

var _ core.ResultStore = (*MemoryResultStore)(nil)
