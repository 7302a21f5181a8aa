// Package jobs contains the background jobs of the progression service.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SessionEvictor closes sessions that have been idle for too long.
type SessionEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// EvictIdleSessionsJob flushes and drops sessions of users who stopped
// sending requests without logging out.
type EvictIdleSessionsJob struct {
	engine  SessionEvictor
	maxIdle time.Duration
	logger  *slog.Logger
}

// NewEvictIdleSessionsJob creates the job.
func NewEvictIdleSessionsJob(engine SessionEvictor, maxIdle time.Duration, logger *slog.Logger) *EvictIdleSessionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvictIdleSessionsJob{
		engine:  engine,
		maxIdle: maxIdle,
		logger:  logger,
	}
}

// Name returns the job name.
func (j *EvictIdleSessionsJob) Name() string {
	return "evict_idle_sessions"
}

// Run evicts idle sessions once.
func (j *EvictIdleSessionsJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := j.engine.EvictIdle(j.maxIdle); n > 0 {
		j.logger.Info("idle sessions evicted", "count", n, "max_idle", j.maxIdle.String())
	}
	return nil
}
