package progress

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator находит достижения, условия которых выполнены, а награда ещё не выдана.
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator создаёт оценщик достижений.
func NewEvaluator(c *Catalog) *Evaluator {
	return &Evaluator{catalog: c}
}

// Evaluate возвращает новые достижения в порядке каталога.
// Достижение с уже полученным значком-наградой пропускается.
func (e *Evaluator) Evaluate(s *Snapshot) []AchievementDefinition {
	var qualified []AchievementDefinition
	for _, a := range e.catalog.achievements {
		if s.HasBadge(a.Reward.BadgeID) {
			continue
		}
		if s.MetricValue(a.Metric) >= a.Target {
			qualified = append(qualified, a)
		}
	}
	return qualified
}

// Grant - выданная награда за достижение.
type Grant struct {
	Achievement AchievementDefinition
	Badge       UnlockedBadge
	// PointsGained = очки значка + BonusPoints.
	PointsGained int
}

// Grants - результат Apply.
type Grants struct {
	Items     []Grant
	LeveledUp bool
}

// Badges возвращает выданные значки.
func (g Grants) Badges() []UnlockedBadge {
	out := make([]UnlockedBadge, 0, len(g.Items))
	for _, it := range g.Items {
		out = append(out, it.Badge)
	}
	return out
}

// Points возвращает сумму начисленных очков.
func (g Grants) Points() int {
	total := 0
	for _, it := range g.Items {
		total += it.PointsGained
	}
	return total
}

// Apply выдаёт все выполненные достижения.
// Очки значков могут поднять уровень и выполнить новые условия (например, level),
// поэтому проверка повторяется, пока появляются новые достижения.
func (e *Evaluator) Apply(s *Snapshot, now time.Time) Grants {
	var out Grants
	startLevel := s.Level
	levels := e.catalog.Levels()

	for pass := 0; pass <= len(e.catalog.achievements); pass++ {
		qualified := e.Evaluate(s)
		if len(qualified) == 0 {
			break
		}
		for _, a := range qualified {
			badge, unlocked, err := s.UnlockBadge(e.catalog, a.Reward.BadgeID, now)
			if err != nil || !unlocked {
				continue
			}
			gained := badge.Points
			if a.Reward.BonusPoints > 0 {
				before := s.TotalPoints
				_, _ = s.AddPoints(levels, a.Reward.BonusPoints)
				gained += s.TotalPoints - before
			}
			out.Items = append(out.Items, Grant{Achievement: a, Badge: badge, PointsGained: gained})
		}
	}

	out.LeveledUp = s.Level > startLevel
	return out
}
