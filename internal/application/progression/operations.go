package progression

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// Outcome describes what an operation did.
//
// Validation problems (unknown badge, negative points, unknown streak kind) are
// reported in Rejected and never returned as errors.
type Outcome struct {
	UserID shared.UserID

	// Applied is false when there is no user, the input was rejected or nothing changed.
	Applied  bool
	Rejected error

	Version     int64
	TotalPoints int
	Level       int
	LeveledUp   bool

	// PointsGained includes direct awards, badge points and achievement bonuses.
	PointsGained int

	BadgesUnlocked       []progress.UnlockedBadge
	AchievementsUnlocked []progress.AchievementDefinition
}

func (o *Outcome) fill(before, after *progress.Snapshot, grants progress.Grants) {
	o.Version = after.Version
	o.TotalPoints = after.TotalPoints
	o.Level = after.Level
	o.LeveledUp = after.Level > before.Level
	o.PointsGained = after.TotalPoints - before.TotalPoints
	for _, g := range grants.Items {
		o.BadgesUnlocked = append(o.BadgesUnlocked, g.Badge)
		o.AchievementsUnlocked = append(o.AchievementsUnlocked, g.Achievement)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// TrackEvent records an interaction and grants every achievement it completes.
// page_view counts per page; other types count per type and typed events
// (assessment_completed, portfolio_created, education_module_completed,
// tool_used) update their statistics.
func (e *Engine) TrackEvent(ctx context.Context, eventType string, data map[string]any) (Outcome, error) {
	if eventType == "" {
		return Outcome{}, shared.ErrEmptyEventType
	}
	s, ok, err := e.current(ctx)
	if err != nil || !ok {
		return Outcome{}, err
	}

	var before *progress.Snapshot
	var grants progress.Grants
	after, changed, err := e.apply(ctx, s, func(snap *progress.Snapshot, now time.Time) (bool, error) {
		before = snap.Clone()
		if err := snap.RecordEvent(eventType, data); err != nil {
			return false, err
		}
		grants = e.evaluator.Apply(snap, now)
		return true, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{UserID: s.userID, Applied: changed}
	out.fill(before, after, grants)

	e.logger.Debug("event tracked",
		"user_id", s.userID,
		"event_type", eventType,
		"version", after.Version,
	)
	e.notifyGrants(ctx, before, after, grants)
	return out, nil
}

// AwardPoints adds points and re-evaluates achievements (including level-based ones).
func (e *Engine) AwardPoints(ctx context.Context, points int, reason string) (Outcome, error) {
	s, ok, err := e.current(ctx)
	if err != nil || !ok {
		return Outcome{}, err
	}

	if points < 0 {
		e.logger.Warn("negative points rejected", "user_id", s.userID, "points", points, "reason", reason)
		return Outcome{UserID: s.userID, Rejected: shared.ErrNegativePoints}, nil
	}

	var before *progress.Snapshot
	var grants progress.Grants
	after, changed, err := e.apply(ctx, s, func(snap *progress.Snapshot, now time.Time) (bool, error) {
		before = snap.Clone()
		if _, err := snap.AddPoints(e.cfg.Catalog.Levels(), points); err != nil {
			return false, err
		}
		grants = e.evaluator.Apply(snap, now)
		return true, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{UserID: s.userID, Applied: changed}
	out.fill(before, after, grants)

	e.logger.Info("points awarded",
		"user_id", s.userID,
		"points", points,
		"reason", reason,
		"total", after.TotalPoints,
		"level", after.Level,
	)

	base := e.baseEvent(ctx, after)
	e.publish(shared.NewPointsAwardedEvent(base, points, reason, after.TotalPoints, out.LeveledUp, after.Level))
	e.notifyGrantsOnly(base, grants, after.Level)
	return out, nil
}

// UnlockBadge unlocks a catalog badge. Unlocking an owned badge changes nothing.
func (e *Engine) UnlockBadge(ctx context.Context, rawID string) (Outcome, error) {
	s, ok, err := e.current(ctx)
	if err != nil || !ok {
		return Outcome{}, err
	}

	id := shared.NormalizeBadgeID(rawID)
	if _, known := e.cfg.Catalog.Badge(id); !known {
		e.logger.Warn("unknown badge id ignored", "user_id", s.userID, "badge_id", rawID)
		return Outcome{UserID: s.userID, Rejected: shared.WrapError("progress", "UnlockBadge",
			shared.ErrUnknownBadge, "badge "+string(id), nil)}, nil
	}

	var before *progress.Snapshot
	var direct progress.UnlockedBadge
	var grants progress.Grants
	after, changed, err := e.apply(ctx, s, func(snap *progress.Snapshot, now time.Time) (bool, error) {
		before = snap.Clone()
		badge, unlocked, err := snap.UnlockBadge(e.cfg.Catalog, id, now)
		if err != nil || !unlocked {
			return false, err
		}
		direct = badge
		grants = e.evaluator.Apply(snap, now)
		return true, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{UserID: s.userID, Applied: changed, Version: after.Version,
		TotalPoints: after.TotalPoints, Level: after.Level}
	if !changed {
		e.logger.Debug("badge already unlocked", "user_id", s.userID, "badge_id", id)
		return out, nil
	}

	out.fill(before, after, grants)
	out.BadgesUnlocked = append([]progress.UnlockedBadge{direct}, out.BadgesUnlocked...)

	e.logger.Info("badge unlocked", "user_id", s.userID, "badge_id", id, "version", after.Version)

	base := e.baseEvent(ctx, after)
	e.publish(shared.NewBadgeUnlockedEvent(base, string(direct.ID), direct.Name, direct.Icon,
		string(direct.Rarity), direct.Points, after.Level))
	e.notifyGrants(ctx, before, after, grants)
	return out, nil
}

// UpdateStreak records activity of the given kind for today (UTC) and grants
// streak milestones.
func (e *Engine) UpdateStreak(ctx context.Context, rawKind string) (Outcome, error) {
	s, ok, err := e.current(ctx)
	if err != nil || !ok {
		return Outcome{}, err
	}

	kind, err := progress.ParseStreakKind(rawKind)
	if err != nil {
		e.logger.Warn("unknown streak kind ignored", "user_id", s.userID, "kind", rawKind)
		return Outcome{UserID: s.userID, Rejected: err}, nil
	}

	var before *progress.Snapshot
	var prev, cur int
	var grants progress.Grants
	after, changed, err := e.apply(ctx, s, func(snap *progress.Snapshot, now time.Time) (bool, error) {
		before = snap.Clone()
		prevState := snap.Streaks.Get(kind)
		prev, cur = snap.AdvanceStreak(kind, now)
		if snap.Streaks.Get(kind) == prevState {
			return false, nil
		}
		grants = e.evaluator.Apply(snap, now)
		return true, nil
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{UserID: s.userID, Applied: changed}
	out.fill(before, after, grants)
	if !changed {
		return out, nil
	}

	e.logger.Debug("streak updated", "user_id", s.userID, "kind", kind, "previous", prev, "current", cur)

	base := e.baseEvent(ctx, after)
	e.publish(shared.NewStreakUpdatedEvent(base, string(kind), prev, cur))
	e.notifyGrants(ctx, before, after, grants)
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

func (e *Engine) baseEvent(ctx context.Context, after *progress.Snapshot) shared.BaseEvent {
	base := shared.NewBaseEvent("", string(after.UserID), after.Version, after.LastActivity)
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return base.WithCorrelationID(id)
	}
	return base.WithCorrelationID(uuid.NewString())
}

func (e *Engine) notifyGrants(ctx context.Context, before, after *progress.Snapshot, grants progress.Grants) {
	if len(grants.Items) == 0 && after.Level <= before.Level {
		return
	}
	base := e.baseEvent(ctx, after)
	e.notifyGrantsOnly(base, grants, after.Level)
	if after.Level > before.Level {
		e.publish(shared.NewLevelUpEvent(base, before.Level, after.Level, after.TotalPoints))
	}
}

func (e *Engine) notifyGrantsOnly(base shared.BaseEvent, grants progress.Grants, level int) {
	for _, g := range grants.Items {
		a := g.Achievement
		e.publish(shared.NewAchievementUnlockedEvent(base, string(a.ID), a.Name, string(a.Reward.BadgeID), a.Reward.BonusPoints))
		b := g.Badge
		e.publish(shared.NewBadgeUnlockedEvent(base, string(b.ID), b.Name, b.Icon, string(b.Rarity), b.Points, level))
	}
}

// publish hands an event to the notifier; failures are logged only.
func (e *Engine) publish(event shared.Event) {
	if e.cfg.Notifier == nil {
		return
	}
	if err := e.cfg.Notifier.Publish(event); err != nil {
		e.logger.Warn("notification dropped", "event_type", event.EventType(), "error", err)
	}
}

type correlationKey struct{}

// WithCorrelationID attaches a request correlation ID to notifications.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the correlation ID set by WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok && id != ""
}
