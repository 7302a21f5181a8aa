package progression

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// errSessionClosed is returned by apply after the session was logged out or
// evicted; the engine resolves a fresh session and retries.
var errSessionClosed = errors.New("progression session is closed")

// Session owns the live snapshot of one logged-in user.
// All mutations run under mu against the current snapshot, so overlapping
// operations always fold onto the latest state.
type Session struct {
	userID shared.UserID

	loadOnce    sync.Once
	repo        progress.Repository
	loadTimeout time.Duration

	mu    sync.Mutex
	snap  *progress.Snapshot
	saver *saver

	closed bool

	// synced is false while snap is a fallback that the store has not
	// confirmed. Nothing is saved until a reload succeeds. Written under mu.
	synced atomic.Bool

	// lastUsed holds unix nanoseconds of the latest lookup.
	lastUsed atomic.Int64

	// retired is closed once the engine finished flushing the session.
	retired chan struct{}

	catalog *progress.Catalog
	clock   func() time.Time
	logger  *slog.Logger
}

func newSession(userID shared.UserID, cfg Config, stats *saveCounters, logger *slog.Logger) *Session {
	l := logger.With("user_id", userID)
	s := &Session{
		userID:      userID,
		repo:        cfg.Repository,
		loadTimeout: cfg.LoadTimeout,
		catalog:     cfg.Catalog,
		clock:       cfg.Clock,
		logger:      l,
		retired:     make(chan struct{}),
	}
	s.saver = newSaver(cfg, stats, l, s.markUnsynced)
	return s
}

// load restores the stored snapshot, or starts from zero state.
// A missing snapshot is created and saved at once. A failed load falls back to
// an unsynced zero state that is never saved; the next operation reloads.
func (s *Session) load(ctx context.Context) {
	s.loadOnce.Do(func() {
		// Other callers wait on this load, so the caller's cancellation must not abort it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		levels := s.catalog.Levels()
		now := s.clock()

		snap, err := s.repo.Load(ctx, s.userID)
		synced := true
		switch {
		case err == nil && snap != nil:
			// Thresholds may have changed since the snapshot was written.
			snap.Recompute(levels)
			s.logger.Debug("progress snapshot restored", "version", snap.Version)

		case err == nil || shared.IsNotFound(err):
			snap = progress.NewSnapshot(s.userID, levels, now)
			s.saver.enqueue(snap.Clone())
			s.logger.Info("created progress snapshot")

		default:
			snap = progress.NewSnapshot(s.userID, levels, now)
			synced = false
			s.logger.Warn("failed to load progress snapshot, using unsynced zero state", "error", err)
		}

		s.mu.Lock()
		s.snap = snap
		s.synced.Store(synced)
		s.mu.Unlock()
	})
}

// resyncLocked retries the load for an unsynced session. A stored snapshot
// replaces the fallback state; a missing one confirms it. Caller holds mu.
func (s *Session) resyncLocked() {
	if s.synced.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
	defer cancel()

	stored, err := s.repo.Load(ctx, s.userID)
	switch {
	case err == nil && stored != nil:
		stored.Recompute(s.catalog.Levels())
		s.logger.Info("progress snapshot resynced, dropping unsynced state",
			"version", stored.Version,
			"dropped_version", s.snap.Version,
		)
		s.snap = stored

	case err == nil || shared.IsNotFound(err):
		s.logger.Info("no stored progress snapshot, keeping unsynced state", "version", s.snap.Version)

	default:
		s.logger.Warn("progress snapshot reload failed, session stays unsynced", "error", err)
		return
	}
	s.synced.Store(true)
}

// markUnsynced forces a reload before the next mutation. The saver calls it
// when the store holds a newer version than the session.
func (s *Session) markUnsynced() {
	s.mu.Lock()
	s.synced.Store(false)
	s.mu.Unlock()
}

// mutation is applied to the live snapshot. It reports whether anything changed;
// when it returns an error the snapshot must be left untouched.
type mutation func(snap *progress.Snapshot, now time.Time) (changed bool, err error)

// apply runs fn under the session lock. On change the version is bumped and a
// copy is handed to the saver when the session is synced; the copy is
// returned to the caller.
func (s *Session) apply(fn mutation) (after *progress.Snapshot, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, errSessionClosed
	}
	s.resyncLocked()

	now := s.clock()
	changed, err = fn(s.snap, now)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return s.snap.Clone(), false, nil
	}

	s.snap.Bump(now)
	after = s.snap.Clone()
	if s.synced.Load() {
		s.saver.enqueue(after.Clone())
	}
	return after, true, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() *progress.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.resyncLocked()
	}
	return s.snap.Clone()
}

func (s *Session) isSynced() bool {
	return s.synced.Load()
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

// close stops further mutations and flushes the pending save.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.saver.close()
}
