// Package catalog reads and writes progression catalogs as YAML files.
// A file may override any of its three sections; omitted sections keep
// the built-in defaults.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// File is the YAML document layout.
type File struct {
	Levels       *Levels       `yaml:"levels,omitempty"`
	Badges       []Badge       `yaml:"badges,omitempty"`
	Achievements []Achievement `yaml:"achievements,omitempty"`
}

// Levels holds the ascending point thresholds and optional titles.
type Levels struct {
	Thresholds []int    `yaml:"thresholds"`
	Titles     []string `yaml:"titles,omitempty"`
}

// Badge is one badge entry.
type Badge struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Icon        string `yaml:"icon,omitempty"`
	Category    string `yaml:"category,omitempty"`
	Rarity      string `yaml:"rarity,omitempty"`
	Points      int    `yaml:"points"`
}

// Achievement is one achievement entry.
type Achievement struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Metric      string `yaml:"metric"`
	Target      int    `yaml:"target"`
	Badge       string `yaml:"badge"`
	BonusPoints int    `yaml:"bonus_points,omitempty"`
}

// Load reads a catalog file from path.
func Load(path string) (*progress.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault returns the default catalog when path is empty.
func LoadOrDefault(path string) (*progress.Catalog, error) {
	if path == "" {
		return progress.DefaultCatalog(), nil
	}
	return Load(path)
}

// Decode parses YAML and validates it into a catalog. Unknown keys are errors.
func Decode(data []byte) (*progress.Catalog, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, shared.WrapError("catalog", "Decode", shared.ErrInvalidFormat, "malformed yaml", err)
	}
	return f.Catalog()
}

// Catalog converts the file into a validated catalog.
func (f File) Catalog() (*progress.Catalog, error) {
	levels := progress.DefaultLevelTable()
	if f.Levels != nil {
		var err error
		if levels, err = progress.NewLevelTable(f.Levels.Thresholds, f.Levels.Titles); err != nil {
			return nil, err
		}
	}

	badges := progress.DefaultBadges()
	if len(f.Badges) > 0 {
		badges = make([]progress.Badge, 0, len(f.Badges))
		for _, b := range f.Badges {
			badges = append(badges, progress.Badge{
				ID:          shared.BadgeID(b.ID),
				Name:        b.Name,
				Description: b.Description,
				Icon:        b.Icon,
				Category:    b.Category,
				Rarity:      progress.Rarity(b.Rarity),
				Points:      b.Points,
			})
		}
	}

	achievements := progress.DefaultAchievements()
	if len(f.Achievements) > 0 {
		achievements = make([]progress.AchievementDefinition, 0, len(f.Achievements))
		for _, a := range f.Achievements {
			achievements = append(achievements, progress.AchievementDefinition{
				ID:          shared.AchievementID(a.ID),
				Name:        a.Name,
				Description: a.Description,
				Metric:      progress.Metric(a.Metric),
				Target:      a.Target,
				Reward: progress.Reward{
					BadgeID:     shared.BadgeID(a.Badge),
					BonusPoints: a.BonusPoints,
				},
			})
		}
	}

	return progress.NewCatalog(levels, badges, achievements)
}

// FromCatalog builds a complete file from a catalog.
func FromCatalog(c *progress.Catalog) File {
	levels := c.Levels()
	f := File{
		Levels: &Levels{
			Thresholds: levels.Thresholds(),
			Titles:     levels.Titles(),
		},
	}
	for _, b := range c.Badges() {
		f.Badges = append(f.Badges, Badge{
			ID:          string(b.ID),
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Category:    b.Category,
			Rarity:      string(b.Rarity),
			Points:      b.Points,
		})
	}
	for _, a := range c.Achievements() {
		f.Achievements = append(f.Achievements, Achievement{
			ID:          string(a.ID),
			Name:        a.Name,
			Description: a.Description,
			Metric:      string(a.Metric),
			Target:      a.Target,
			Badge:       string(a.Reward.BadgeID),
			BonusPoints: a.Reward.BonusPoints,
		})
	}
	return f
}

// Encode writes the catalog as YAML.
func Encode(w io.Writer, c *progress.Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromCatalog(c)); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}
