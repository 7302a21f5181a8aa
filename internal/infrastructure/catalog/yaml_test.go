package catalog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

func TestEncodeDecode_DefaultCatalog(t *testing.T) {
	def := progress.DefaultCatalog()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, def))
	assert.Contains(t, buf.String(), "id: FIRST_STEPS")
	assert.Contains(t, buf.String(), "metric: tool:esg-screener")

	got, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, def.Levels().Thresholds(), got.Levels().Thresholds())
	assert.Equal(t, def.Badges(), got.Badges())
	assert.Equal(t, def.Achievements(), got.Achievements())
}

func TestDecode_EmptyFileUsesDefaults(t *testing.T) {
	c, err := Decode(nil)
	require.NoError(t, err)
	assert.Len(t, c.Badges(), len(progress.DefaultBadges()))
}

func TestDecode_LevelOverride(t *testing.T) {
	c, err := Decode([]byte(`
levels:
  thresholds: [0, 50, 150]
`))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Levels().MaxLevel())
	assert.Equal(t, 2, c.Levels().LevelOf(60))
	assert.Equal(t, "Level 3", c.Levels().Title(3))
}

func TestDecode_CustomCatalog(t *testing.T) {
	c, err := Decode([]byte(`
badges:
  - id: EARLY_BIRD
    name: Early Bird
    rarity: rare
    points: 50
achievements:
  - id: early_bird
    name: Early Bird
    metric: event:morning_login
    target: 3
    badge: EARLY_BIRD
    bonus_points: 10
`))
	require.NoError(t, err)

	a, ok := c.Achievement("early_bird")
	require.True(t, ok)
	assert.Equal(t, progress.EventMetric("morning_login"), a.Metric)
	assert.Equal(t, 10, a.Reward.BonusPoints)
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":        "levels:\n  thresholds: [0]\n  colour: red\n",
		"malformed":          ":::not yaml",
		"bad thresholds":     "levels:\n  thresholds: [10, 5]\n",
		"lowercase badge id": "badges:\n  - id: early_bird\n    name: x\n    points: 1\n",
		"unknown reward": `
achievements:
  - id: ghost
    name: Ghost
    metric: level
    target: 2
    badge: NOPE
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err) || isFormat(err), "got %v", err)
		})
	}
}

func isFormat(err error) bool {
	return errors.Is(err, shared.ErrInvalidFormat)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("levels:\n  thresholds: [0, 10]\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Levels().MaxLevel())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, progress.DefaultLevelTable().Thresholds(), def.Levels().Thresholds())
}
