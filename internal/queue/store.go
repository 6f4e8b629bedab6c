package queue

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Store is an in-memory job store with TTL support
type Store struct {
	jobs          map[string]*Job
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// NewStore creates a new job store
func NewStore() *Store {
	s := &Store{
		jobs:        make(map[string]*Job),
		stopCleanup: make(chan struct{}),
	}

	// Start TTL cleanup goroutine
	s.startCleanup()

	return s
}

// startCleanup starts the background TTL cleanup
func (s *Store) startCleanup() {
	s.cleanupTicker = time.NewTicker(1 * time.Hour)

	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.cleanupExpired()
			case <-s.stopCleanup:
				s.cleanupTicker.Stop()
				return
			}
		}
	}()
}

// cleanupExpired removes expired jobs
func (s *Store) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for jobID, job := range s.jobs {
		if job.IsExpired() {
			delete(s.jobs, jobID)
			deleted++
		}
	}

	if deleted > 0 {
		log.Printf("Cleaned up %d expired jobs", deleted)
	}
}

// Stop stops the cleanup goroutine
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}

// Save saves a job to the store
func (s *Store) Save(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get retrieves a job by ID
func (s *Store) Get(jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	if job.IsExpired() {
		return nil, fmt.Errorf("job expired: %s", jobID)
	}
	return job, nil
}

// Update updates a job in the store
func (s *Store) Update(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job not found: %s", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// Delete removes a job from the store
func (s *Store) Delete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// List returns all jobs
func (s *Store) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
