package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	b, ok := c.Badge(BadgeFirstSteps)
	require.True(t, ok)
	assert.Equal(t, 100, b.Points)

	b, ok = c.Badge(BadgeKnowledgeSeeker)
	require.True(t, ok)
	assert.Equal(t, 250, b.Points)

	_, ok = c.Badge("first_steps")
	assert.False(t, ok, "lookups use canonical ids only")

	a, ok := c.AchievementFor(BadgeRisingStar)
	require.True(t, ok)
	assert.Equal(t, MetricLevel, a.Metric)
}

func TestNewCatalog_RejectsInvalidData(t *testing.T) {
	levels := DefaultLevelTable()
	badge := Badge{ID: "GOOD", Name: "Good", Points: 10}

	tests := []struct {
		name         string
		badges       []Badge
		achievements []AchievementDefinition
	}{
		{"non canonical badge id", []Badge{{ID: "first_steps", Name: "x"}}, nil},
		{"duplicate badge", []Badge{badge, badge}, nil},
		{"negative badge points", []Badge{{ID: "BAD", Name: "x", Points: -1}}, nil},
		{"unknown rarity", []Badge{{ID: "BAD", Name: "x", Rarity: "mythic"}}, nil},
		{"unknown metric", []Badge{badge}, []AchievementDefinition{
			{ID: "a", Metric: "karma", Target: 1, Reward: Reward{BadgeID: "GOOD"}},
		}},
		{"empty tool metric", []Badge{badge}, []AchievementDefinition{
			{ID: "a", Metric: ToolMetric(""), Target: 1, Reward: Reward{BadgeID: "GOOD"}},
		}},
		{"zero target", []Badge{badge}, []AchievementDefinition{
			{ID: "a", Metric: MetricLevel, Target: 0, Reward: Reward{BadgeID: "GOOD"}},
		}},
		{"unknown reward badge", []Badge{badge}, []AchievementDefinition{
			{ID: "a", Metric: MetricLevel, Target: 2, Reward: Reward{BadgeID: "MISSING"}},
		}},
		{"shared reward badge", []Badge{badge}, []AchievementDefinition{
			{ID: "a", Metric: MetricLevel, Target: 2, Reward: Reward{BadgeID: "GOOD"}},
			{ID: "b", Metric: MetricLevel, Target: 3, Reward: Reward{BadgeID: "GOOD"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(levels, tt.badges, tt.achievements)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrInvalidCatalog)
		})
	}
}

func TestNormalizeBadgeID(t *testing.T) {
	assert.Equal(t, shared.BadgeID("FIRST_STEPS"), shared.NormalizeBadgeID(" first-steps "))
	assert.True(t, shared.NormalizeBadgeID("knowledge seeker").IsCanonical())
}
