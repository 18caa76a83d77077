package scheduler

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultInterval matches the hourly refresh of the data screen.
const DefaultInterval = time.Hour

var errAlreadyStarted = errors.New("scheduler already started")

// Scheduler runs a single task at a fixed interval. The first run happens one
// interval after Start, never immediately.
type Scheduler struct {
	mu        sync.Mutex
	scheduler *gocron.Scheduler
	interval  time.Duration
}

// New creates a new Scheduler. Non-positive intervals fall back to DefaultInterval.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval}
}

// Interval returns the effective firing interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start schedules task and starts the underlying scheduler.
func (s *Scheduler) Start(task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		return errAlreadyStarted
	}

	// gocron schedulers are not reusable after Stop, so each Start gets a fresh one.
	gs := gocron.NewScheduler(time.UTC)
	gs.SingletonModeAll()
	gs.WaitForScheduleAll()

	_, err := gs.Every(s.interval).Do(func() {
		log.Println("scheduler: running refresh job")
		task()
	})
	if err != nil {
		return err
	}

	gs.StartAsync()
	s.scheduler = gs
	log.Printf("scheduler: armed with interval %s", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future runs. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	gs := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if gs != nil {
		gs.Stop()
		log.Println("scheduler: disarmed")
	}
}

// Running reports whether the scheduler is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler != nil
}
