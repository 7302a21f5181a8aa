package progression

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BACKGROUND SAVER
// One goroutine per session. The mailbox holds only the latest snapshot, so a
// burst of mutations results in at most one pending write. Saves are not
// retried; a failure is logged and the in-memory state stays authoritative.
// A stale rejection means the store moved ahead, so the session is told to
// reload before its next mutation.
// ══════════════════════════════════════════════════════════════════════════════

type saveCounters struct {
	succeeded atomic.Int64
	failed    atomic.Int64
}

type saver struct {
	repo    progress.Repository
	cache   progress.SnapshotCache
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
	stats   *saveCounters
	onStale func()

	mu      sync.Mutex
	pending *progress.Snapshot
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newSaver(cfg Config, stats *saveCounters, logger *slog.Logger, onStale func()) *saver {
	w := &saver{
		repo:    cfg.Repository,
		cache:   cfg.Cache,
		ttl:     cfg.CacheTTL,
		timeout: cfg.SaveTimeout,
		logger:  logger,
		stats:   stats,
		onStale: onStale,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue replaces the pending snapshot and never blocks.
func (w *saver) enqueue(snap *progress.Snapshot) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		// Session already discarded; write it out on its own.
		go w.save(snap)
		return
	}
	w.pending = snap
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *saver) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.stop:
			w.flush()
			return
		}
	}
}

func (w *saver) flush() {
	w.mu.Lock()
	snap := w.pending
	w.pending = nil
	w.mu.Unlock()

	if snap != nil {
		w.save(snap)
	}
}

func (w *saver) save(snap *progress.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.repo.Save(ctx, snap); err != nil {
		w.stats.failed.Add(1)
		if shared.IsStale(err) {
			w.logger.Warn("progress snapshot rejected, store holds a newer version",
				"user_id", snap.UserID,
				"version", snap.Version,
			)
			if w.onStale != nil {
				w.onStale()
			}
			return
		}
		w.logger.Warn("failed to save progress snapshot",
			"user_id", snap.UserID,
			"version", snap.Version,
			"error", err,
		)
		return
	}
	w.stats.succeeded.Add(1)

	if w.cache == nil {
		return
	}
	if err := w.cache.Set(ctx, snap, w.ttl); err != nil {
		w.logger.Debug("failed to cache progress snapshot", "user_id", snap.UserID, "error", err)
	}
}

// close drains the pending snapshot and stops the goroutine.
func (w *saver) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	<-w.done
}
