// Package scheduler runs background maintenance jobs at fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Start and Register once the scheduler runs.
	ErrAlreadyRunning = errors.New("scheduler: already running")

	// ErrNotRunning is returned by Stop before Start.
	ErrNotRunning = errors.New("scheduler: not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error
}

// JobStats counts executions of one job.
type JobStats struct {
	Runs     int64
	Failures int64
	LastRun  time.Time
}

type scheduledJob struct {
	job      Job
	interval time.Duration

	runs     atomic.Int64
	failures atomic.Int64
	lastRun  atomic.Int64
}

func (sj *scheduledJob) stats() JobStats {
	st := JobStats{Runs: sj.runs.Load(), Failures: sj.failures.Load()}
	if ns := sj.lastRun.Load(); ns != 0 {
		st.LastRun = time.Unix(0, ns).UTC()
	}
	return st
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler runs every registered job on its own ticker. A job never overlaps
// with itself: a tick that arrives while the job is still running is dropped.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*scheduledJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger.With("component", "scheduler"),
		jobs:   make(map[string]*scheduledJob),
	}
}

// Register adds a job that runs every interval after Start.
func (s *Scheduler) Register(job Job, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: job %s: interval must be positive", job.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("scheduler: job %s already registered", job.Name())
	}
	s.jobs[job.Name()] = &scheduledJob{job: job, interval: interval}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start launches the job loops. They stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, sj := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, sj)
	}

	s.logger.Info("scheduler started", "jobs_count", len(s.jobs))
	return nil
}

// Stop cancels the job loops and waits for running jobs to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// Stats returns execution counters for the named job.
func (s *Scheduler) Stats(name string) (JobStats, bool) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return JobStats{}, false
	}
	return sj.stats(), true
}

func (s *Scheduler) loop(ctx context.Context, sj *scheduledJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, sj)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, sj *scheduledJob) {
	name := sj.job.Name()
	started := time.Now()

	err := sj.job.Run(ctx)

	sj.runs.Add(1)
	sj.lastRun.Store(started.UnixNano())
	if err != nil {
		sj.failures.Add(1)
		s.logger.Error("job failed",
			"job", name,
			"duration", time.Since(started).String(),
			"error", err,
		)
		return
	}
	s.logger.Debug("job completed",
		"job", name,
		"duration", time.Since(started).String(),
	)
}
