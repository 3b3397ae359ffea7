package api

import (
	"github.com/google/uuid"
	"go-omnicontrol/pkg/models"
	"sync"
)

// jobsCache remembers the last status observed for every job the server started, so finished jobs
// can still be looked up after the session moved on.
type jobsCache struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.Status
}

func newJobsCache() *jobsCache {
	return &jobsCache{
		jobs: map[uuid.UUID]models.Status{},
	}
}

func (s *jobsCache) add(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		s.jobs[id] = models.Status{JobID: id.String()}
	}
}

// observe records status if it belongs to a known job.
func (s *jobsCache) observe(status models.Status) {
	id, err := uuid.Parse(status.JobID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		s.jobs[id] = status
	}
}

func (s *jobsCache) get(id uuid.UUID) (models.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.jobs[id]
	return status, ok
}
