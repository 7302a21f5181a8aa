// Package progression is the application service that applies progression
// operations (events, points, badges, streaks) to per-user snapshots.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// ErrEngineClosed is returned by operations after Close.
var ErrEngineClosed = errors.New("progression engine is closed")

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config wires the engine to its collaborators.
type Config struct {
	// Catalog is the immutable level/badge/achievement catalog.
	Catalog *progress.Catalog

	// Repository is the persistence gateway. Required.
	Repository progress.Repository

	// Cache keeps the last saved snapshot for offline display. Optional.
	Cache    progress.SnapshotCache
	CacheTTL time.Duration

	// Notifier receives badge, achievement and points notifications. Optional.
	Notifier shared.EventPublisher

	// Identity resolves the current user. Defaults to ContextIdentity.
	Identity IdentityProvider

	Logger *slog.Logger

	// Clock returns the current time. Defaults to time.Now in UTC.
	Clock func() time.Time

	LoadTimeout time.Duration
	SaveTimeout time.Duration
}

// DefaultConfig returns defaults for everything except the collaborators.
func DefaultConfig() Config {
	return Config{
		CacheTTL:    24 * time.Hour,
		LoadTimeout: 5 * time.Second,
		SaveTimeout: 5 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine holds one Session per logged-in user.
type Engine struct {
	cfg       Config
	evaluator *progress.Evaluator
	logger    *slog.Logger
	stats     saveCounters

	mu       sync.Mutex
	sessions map[shared.UserID]*Session
	// closing holds sessions that left sessions but are still flushing.
	// A new session for the same user waits until the flush is done.
	closing map[shared.UserID]*Session
	closed  bool
}

// NewEngine creates a progression engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Repository == nil {
		return nil, errors.New("progression: repository is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = progress.DefaultCatalog()
	}
	if cfg.Identity == nil {
		cfg.Identity = ContextIdentity{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	defaults := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaults.LoadTimeout
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaults.SaveTimeout
	}

	return &Engine{
		cfg:       cfg,
		evaluator: progress.NewEvaluator(cfg.Catalog),
		logger:    cfg.Logger.With("component", "progression"),
		sessions:  make(map[shared.UserID]*Session),
		closing:   make(map[shared.UserID]*Session),
	}, nil
}

// Catalog returns the catalog the engine evaluates against.
func (e *Engine) Catalog() *progress.Catalog {
	return e.cfg.Catalog
}

// Login loads (or creates) the session for userID and returns its snapshot.
func (e *Engine) Login(ctx context.Context, userID shared.UserID) (*progress.Snapshot, error) {
	if userID.IsEmpty() {
		return nil, shared.ErrNoUser
	}
	s, err := e.sessionFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Logout discards the in-memory session after flushing its pending save.
// The store keeps the last saved copy.
func (e *Engine) Logout(ctx context.Context, userID shared.UserID) {
	e.mu.Lock()
	s, ok := e.sessions[userID]
	if ok {
		delete(e.sessions, userID)
		e.closing[userID] = s
	}
	e.mu.Unlock()

	if !ok {
		return
	}
	e.retire(s)
	e.logger.Info("session closed", "user_id", userID)
}

// EvictIdle closes sessions not used for longer than maxIdle, the same way
// Logout does, and returns how many were closed.
func (e *Engine) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	now := e.cfg.Clock()

	e.mu.Lock()
	var idle []*Session
	for id, s := range e.sessions {
		if s.idleFor(now) > maxIdle {
			idle = append(idle, s)
			delete(e.sessions, id)
			e.closing[id] = s
		}
	}
	e.mu.Unlock()

	for _, s := range idle {
		e.retire(s)
		e.logger.Info("idle session evicted", "user_id", s.userID)
	}
	return len(idle)
}

// Snapshot returns a copy of the current user's state; ok is false without a user.
func (e *Engine) Snapshot(ctx context.Context) (snap *progress.Snapshot, ok bool, err error) {
	s, ok, err := e.current(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	return s.Snapshot(), true, nil
}

// LastSaved returns the last persisted snapshot for userID, preferring the cache.
func (e *Engine) LastSaved(ctx context.Context, userID shared.UserID) (*progress.Snapshot, error) {
	if e.cfg.Cache != nil {
		snap, err := e.cfg.Cache.Get(ctx, userID)
		if err == nil {
			return snap, nil
		}
		if !shared.IsNotFound(err) {
			e.logger.Debug("snapshot cache read failed", "user_id", userID, "error", err)
		}
	}

	snap, err := e.cfg.Repository.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap.Recompute(e.cfg.Catalog.Levels())
	return snap, nil
}

// Metrics reports engine counters.
type Metrics struct {
	ActiveSessions   int   `json:"activeSessions"`
	UnsyncedSessions int   `json:"unsyncedSessions"`
	SavesSucceeded   int64 `json:"savesSucceeded"`
	SavesFailed      int64 `json:"savesFailed"`
}

// Metrics returns a point-in-time view of the engine counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	active := len(e.sessions)
	unsynced := 0
	for _, s := range e.sessions {
		if !s.isSynced() {
			unsynced++
		}
	}
	e.mu.Unlock()

	return Metrics{
		ActiveSessions:   active,
		UnsyncedSessions: unsynced,
		SavesSucceeded:   e.stats.succeeded.Load(),
		SavesFailed:      e.stats.failed.Load(),
	}
}

// Close flushes and discards every session.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sessions := e.sessions
	e.sessions = make(map[shared.UserID]*Session)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range sessions {
			s.close()
		}
	}()

	select {
	case <-done:
		e.logger.Info("progression engine closed", "sessions", len(sessions))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close progression engine: %w", ctx.Err())
	}
}

// current resolves the session for the user in ctx.
func (e *Engine) current(ctx context.Context) (*Session, bool, error) {
	userID, ok := e.cfg.Identity.CurrentUserID(ctx)
	if !ok {
		return nil, false, nil
	}
	s, err := e.sessionFor(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// retire flushes a session already moved to closing and releases waiters.
func (e *Engine) retire(s *Session) {
	defer close(s.retired)
	s.close()

	e.mu.Lock()
	if e.closing[s.userID] == s {
		delete(e.closing, s.userID)
	}
	e.mu.Unlock()
}

func (e *Engine) sessionFor(ctx context.Context, userID shared.UserID) (*Session, error) {
	e.mu.Lock()
	for {
		if e.closed {
			e.mu.Unlock()
			return nil, ErrEngineClosed
		}
		prev, flushing := e.closing[userID]
		if !flushing {
			break
		}
		e.mu.Unlock()
		select {
		case <-prev.retired:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		e.mu.Lock()
	}
	s, ok := e.sessions[userID]
	if !ok {
		s = newSession(userID, e.cfg, &e.stats, e.logger)
		e.sessions[userID] = s
	}
	s.touch(e.cfg.Clock())
	e.mu.Unlock()

	s.load(ctx)
	return s, nil
}

// apply runs fn on s. A session closed by Logout or
// EvictIdle between lookup and apply is replaced by a fresh one.
func (e *Engine) apply(ctx context.Context, s *Session, fn mutation) (*progress.Snapshot, bool, error) {
	for {
		after, changed, err := s.apply(fn)
		if !errors.Is(err, errSessionClosed) {
			return after, changed, err
		}
		e.logger.Debug("session closed during operation, reopening", "user_id", s.userID)
		if s, err = e.sessionFor(ctx, s.userID); err != nil {
			return nil, false, err
		}
	}
}
