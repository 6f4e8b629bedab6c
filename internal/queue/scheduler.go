package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ahrdadan/snapq/internal/capture"
)

// Runner executes one admitted capture and returns the screenshot URL.
type Runner func(ctx context.Context, req capture.Request) (string, error)

// Outcome resolves a submission.
type Outcome struct {
	JobID string
	URL   string
	Err   error
}

// Options configures a Scheduler.
type Options struct {
	MaxConcurrent  int           // simultaneous captures (default 5)
	ResultTTL      time.Duration // how long finished job records live
	StatusInterval time.Duration // how often the queue logs its status
}

// Scheduler is the single admission-control point: every submission joins
// a FIFO pending list, and all dispatch decisions are taken under one lock
// so the active count never exceeds the bound. Dispatch order is FIFO;
// completion order is whatever the captures make of it.
type Scheduler struct {
	mu      sync.Mutex
	pending []*task
	active  int

	maxConcurrent int
	runner        Runner
	resultTTL     time.Duration

	store  *Store
	events *EventHub

	stop     chan struct{}
	stopOnce sync.Once
}

type task struct {
	job    *Job
	result chan Outcome
}

// NewScheduler creates and starts a scheduler.
func NewScheduler(runner Runner, opts Options) *Scheduler {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 30 * time.Second
	}

	s := &Scheduler{
		maxConcurrent: opts.MaxConcurrent,
		runner:        runner,
		resultTTL:     opts.ResultTTL,
		store:         NewStore(),
		events:        NewEventHub(),
		stop:          make(chan struct{}),
	}

	go s.statusLoop(opts.StatusInterval)

	return s
}

// Submit enqueues a capture request and attempts dispatch. The returned
// channel resolves exactly once, when the capture finishes.
func (s *Scheduler) Submit(req capture.Request) (*Job, <-chan Outcome) {
	job := NewJob(req, s.resultTTL)
	s.store.Save(job)

	t := &task{
		job:    job,
		result: make(chan Outcome, 1),
	}

	s.mu.Lock()
	s.pending = append(s.pending, t)
	s.mu.Unlock()

	s.events.Emit(job.ID, Event{JobID: job.ID, Status: job.Status})
	s.dispatch()

	return job, t.result
}

// dispatch starts pending tasks while capacity remains. All admission
// decisions happen under s.mu, one at a time.
func (s *Scheduler) dispatch() {
	s.mu.Lock()
	var started []*task
	for s.active < s.maxConcurrent && len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		s.active++
		started = append(started, t)
	}
	s.mu.Unlock()

	for _, t := range started {
		go s.execute(t)
	}
}

func (s *Scheduler) execute(t *task) {
	job := t.job

	job.SetRunning()
	if err := s.store.Update(job); err != nil {
		log.Printf("Failed to update job %s: %v", job.ID, err)
	}
	s.events.Emit(job.ID, Event{JobID: job.ID, Status: job.Status})

	url, err := s.runner(context.Background(), job.Request)
	if err != nil {
		job.SetError(err.Error())
	} else {
		job.SetResult(url)
	}
	if uerr := s.store.Update(job); uerr != nil {
		log.Printf("Failed to update job %s: %v", job.ID, uerr)
	}
	s.events.Emit(job.ID, Event{
		JobID:         job.ID,
		Status:        job.Status,
		ScreenshotURL: job.ScreenshotURL,
		Error:         job.Error,
	})

	t.result <- Outcome{JobID: job.ID, URL: url, Err: err}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	s.dispatch()
}

// Status returns the current active and waiting counts.
func (s *Scheduler) Status() (active, waiting int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, len(s.pending)
}

// statusLoop periodically logs queue occupancy for operational visibility.
func (s *Scheduler) statusLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			active, waiting := s.Status()
			if active > 0 || waiting > 0 {
				log.Printf("Queue status: active=%d waiting=%d", active, waiting)
			}
		case <-s.stop:
			return
		}
	}
}

// GetJob retrieves a job by ID.
func (s *Scheduler) GetJob(jobID string) (*Job, error) {
	return s.store.Get(jobID)
}

// Subscribe subscribes to job events.
func (s *Scheduler) Subscribe(jobID string) <-chan Event {
	return s.events.Subscribe(jobID)
}

// Unsubscribe unsubscribes from job events.
func (s *Scheduler) Unsubscribe(jobID string, ch <-chan Event) {
	s.events.Unsubscribe(jobID, ch)
}

// Stop shuts the scheduler's background work down. Pending tasks are not
// interrupted; in-flight captures finish on their own deadlines.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.store.Stop()
		s.events.Close()
	})
}
