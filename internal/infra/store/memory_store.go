package store

import (
	"context"
	"sync"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/repository"
)

var _ repository.JobStore = (*MemoryJobStore)(nil)

// MemoryJobStore is the reference backend: job state lives for the process
// lifetime only, with no expiry. Reads hand out deep copies so HTTP handlers
// never alias state a concurrent Update is mutating.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryJobStore) Create(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Find(_ context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryJobStore) Update(_ context.Context, id string, fn func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	fn(job)
	return nil
}
