package service

import (
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

// runStore keeps run metadata in memory. Finished runs expire after ttl;
// the Redis cache outlives them.
type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]models.GenerationRun
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]models.GenerationRun),
	}
}

func (s *runStore) Save(run models.GenerationRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.ID] = run
}

func (s *runStore) Get(id string) (models.GenerationRun, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return models.GenerationRun{}, false
	}
	if s.expired(run, time.Now()) {
		s.Delete(id)
		return models.GenerationRun{}, false
	}
	return run, true
}

// Update applies fn to the stored run under the write lock.
func (s *runStore) Update(id string, fn func(*models.GenerationRun)) (models.GenerationRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.items[id]
	if !ok {
		return models.GenerationRun{}, false
	}
	fn(&run)
	s.items[id] = run
	return run, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// List returns runs newest first, optionally filtered by status.
func (s *runStore) List(status models.RunStatus) []models.GenerationRun {
	now := time.Now()
	s.mu.RLock()
	out := make([]models.GenerationRun, 0, len(s.items))
	for _, run := range s.items {
		if s.expired(run, now) || (status != "" && run.Status != status) {
			continue
		}
		out = append(out, run)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Expired removes and returns every expired run.
func (s *runStore) Expired(now time.Time) []models.GenerationRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GenerationRun
	for id, run := range s.items {
		if s.expired(run, now) {
			out = append(out, run)
			delete(s.items, id)
		}
	}
	return out
}

func (s *runStore) expired(run models.GenerationRun, now time.Time) bool {
	return s.ttl > 0 && run.FinishedAt != nil && now.Sub(*run.FinishedAt) > s.ttl
}
