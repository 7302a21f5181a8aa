package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

func TestEvaluator_FirstAssessment(t *testing.T) {
	c := DefaultCatalog()
	s := NewSnapshot("u1", c.Levels(), testNow)
	require.NoError(t, s.RecordEvent(EventAssessmentCompleted, nil))

	grants := NewEvaluator(c).Apply(s, testNow)

	require.Len(t, grants.Items, 1)
	assert.Equal(t, shared.AchievementID("first_assessment"), grants.Items[0].Achievement.ID)
	assert.Equal(t, 100, grants.Points())
	assert.Equal(t, 100, s.TotalPoints)
	assert.True(t, s.HasBadge(BadgeFirstSteps))
	assert.True(t, grants.LeveledUp)
}

func TestEvaluator_ToolsExplorer(t *testing.T) {
	c := DefaultCatalog()
	s := NewSnapshot("u1", c.Levels(), testNow)
	for _, tool := range []string{"a", "b", "c", "d"} {
		s.Stats.AddTool(tool)
	}
	require.Empty(t, NewEvaluator(c).Evaluate(s))

	require.NoError(t, s.RecordEvent(EventToolUsed, map[string]any{"tool": "e"}))
	grants := NewEvaluator(c).Apply(s, testNow)

	require.Len(t, grants.Items, 1)
	assert.Equal(t, shared.BadgeID(BadgeKnowledgeSeeker), grants.Items[0].Badge.ID)
	assert.Equal(t, 250, s.TotalPoints)
}

func TestEvaluator_NoDoubleReward(t *testing.T) {
	c := DefaultCatalog()
	s := NewSnapshot("u1", c.Levels(), testNow)
	s.Stats.AssessmentsCompleted = 1
	ev := NewEvaluator(c)

	first := ev.Apply(s, testNow)
	second := ev.Apply(s, testNow)

	assert.Len(t, first.Items, 1)
	assert.Empty(t, second.Items)
	assert.Equal(t, 100, s.TotalPoints)
}

func TestEvaluator_SkipsAchievementWhenBadgeUnlockedDirectly(t *testing.T) {
	c := DefaultCatalog()
	s := NewSnapshot("u1", c.Levels(), testNow)
	_, _, err := s.UnlockBadge(c, BadgeFirstSteps, testNow)
	require.NoError(t, err)

	s.Stats.AssessmentsCompleted = 1
	assert.Empty(t, NewEvaluator(c).Evaluate(s))
}

func TestEvaluator_GrantsAllQualifyingInCatalogOrder(t *testing.T) {
	c := DefaultCatalog()
	s := NewSnapshot("u1", c.Levels(), testNow)
	s.Stats.AssessmentsCompleted = 5
	s.Stats.PortfoliosCreated = 1

	grants := NewEvaluator(c).Apply(s, testNow)

	ids := make([]shared.AchievementID, 0, len(grants.Items))
	for _, g := range grants.Items {
		ids = append(ids, g.Achievement.ID)
	}
	assert.Equal(t, []shared.AchievementID{"first_assessment", "risk_analyst", "first_portfolio"}, ids)
	// 100 + (300 + 50 bonus) + 150
	assert.Equal(t, 600, s.TotalPoints)
	assert.Equal(t, c.Levels().LevelOf(600), s.Level)
}

func TestEvaluator_LevelAchievementAfterBadgePoints(t *testing.T) {
	c := DefaultCatalog()
	s := NewSnapshot("u1", c.Levels(), testNow)
	_, err := s.AddPoints(c.Levels(), 7400)
	require.NoError(t, err)
	require.Equal(t, 9, s.Level)

	// Streak badges lift the total past 7500 (level 10), which qualifies RISING_STAR on the next pass.
	s.Streaks.LoginStreak = 30
	grants := NewEvaluator(c).Apply(s, testNow)

	assert.True(t, s.HasBadge(BadgeWeekWarrior))
	assert.True(t, s.HasBadge(BadgeMonthlyMaster))
	assert.True(t, s.HasBadge(BadgeRisingStar))
	assert.Len(t, grants.Items, 3)
	assert.Equal(t, s.Level, c.Levels().LevelOf(s.TotalPoints))
}

func TestEvaluator_ToolMetric(t *testing.T) {
	c := DefaultCatalog()
	s := NewSnapshot("u1", c.Levels(), testNow)
	s.Stats.AddTool(ToolESGScreener)

	got := NewEvaluator(c).Evaluate(s)
	require.Len(t, got, 1)
	assert.Equal(t, shared.BadgeID(BadgeESGChampion), got[0].Reward.BadgeID)
}
