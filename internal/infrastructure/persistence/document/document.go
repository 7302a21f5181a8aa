// Package document defines the persisted JSON shape of a progress snapshot.
// It is shared by the SQL stores and the Redis cache so every copy of a
// snapshot decodes the same way.
package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/pkg/timeutil"
)

// SchemaVersion is bumped when the document layout changes incompatibly.
const SchemaVersion = 1

// Snapshot is the flat record persisted for one user.
type Snapshot struct {
	Schema                int       `json:"schema"`
	UserID                string    `json:"userId"`
	Version               int64     `json:"version"`
	TotalPoints           int       `json:"totalPoints"`
	Level                 int       `json:"level"`
	ExperiencePoints      int       `json:"experiencePoints"`
	ExperienceToNextLevel int       `json:"experienceToNextLevel"`
	Badges                []Badge   `json:"badges"`
	Streaks               Streaks   `json:"streaks"`
	Stats                 Stats     `json:"stats"`
	LastActivity          time.Time `json:"lastActivity"`
	CreatedAt             time.Time `json:"createdAt"`
}

// Badge is an unlocked badge record.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Category    string    `json:"category"`
	Rarity      string    `json:"rarity"`
	Points      int       `json:"points"`
	IsUnlocked  bool      `json:"isUnlocked"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// Streaks stores calendar days as YYYY-MM-DD strings.
type Streaks struct {
	LoginStreak        int    `json:"loginStreak"`
	LearningStreak     int    `json:"learningStreak"`
	LastLoginDate      string `json:"lastLoginDate,omitempty"`
	LastLearningDate   string `json:"lastLearningDate,omitempty"`
	BestLoginStreak    int    `json:"bestLoginStreak"`
	BestLearningStreak int    `json:"bestLearningStreak"`
}

// Stats serializes the tools set as a sorted array.
type Stats struct {
	ToolsUsed                 []string       `json:"toolsUsed"`
	AssessmentsCompleted      int            `json:"assessmentsCompleted"`
	PortfoliosCreated         int            `json:"portfoliosCreated"`
	EducationModulesCompleted int            `json:"educationModulesCompleted"`
	PageViews                 map[string]int `json:"pageViews"`
	Events                    map[string]int `json:"events"`
}

// FromDomain maps a domain snapshot to its document.
func FromDomain(s *progress.Snapshot) Snapshot {
	doc := Snapshot{
		Schema:                SchemaVersion,
		UserID:                string(s.UserID),
		Version:               s.Version,
		TotalPoints:           s.TotalPoints,
		Level:                 s.Level,
		ExperiencePoints:      s.ExperiencePoints,
		ExperienceToNextLevel: s.ExperienceToNextLevel,
		Badges:                make([]Badge, 0, len(s.Badges)),
		Streaks: Streaks{
			LoginStreak:        s.Streaks.LoginStreak,
			LearningStreak:     s.Streaks.LearningStreak,
			LastLoginDate:      formatDay(s.Streaks.LastLoginDate),
			LastLearningDate:   formatDay(s.Streaks.LastLearningDate),
			BestLoginStreak:    s.Streaks.BestLoginStreak,
			BestLearningStreak: s.Streaks.BestLearningStreak,
		},
		Stats: Stats{
			ToolsUsed:                 s.Stats.ToolNames(),
			AssessmentsCompleted:      s.Stats.AssessmentsCompleted,
			PortfoliosCreated:         s.Stats.PortfoliosCreated,
			EducationModulesCompleted: s.Stats.EducationModulesCompleted,
			PageViews:                 copyCounts(s.Stats.PageViews),
			Events:                    copyCounts(s.Stats.Events),
		},
		LastActivity: s.LastActivity.UTC(),
		CreatedAt:    s.CreatedAt.UTC(),
	}

	for _, b := range s.Badges {
		doc.Badges = append(doc.Badges, Badge{
			ID:          string(b.ID),
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			Category:    b.Category,
			Rarity:      string(b.Rarity),
			Points:      b.Points,
			IsUnlocked:  b.IsUnlocked,
			UnlockedAt:  b.UnlockedAt.UTC(),
		})
	}
	return doc
}

// ToDomain maps a document back to a domain snapshot. Duplicate badge ids and
// duplicate tools collapse, so a hand-edited record cannot break the invariants.
func (d Snapshot) ToDomain() (*progress.Snapshot, error) {
	if d.Schema > SchemaVersion {
		return nil, fmt.Errorf("document: unsupported schema %d", d.Schema)
	}

	s := &progress.Snapshot{
		UserID:                shared.UserID(d.UserID),
		Version:               d.Version,
		TotalPoints:           d.TotalPoints,
		Level:                 d.Level,
		ExperiencePoints:      d.ExperiencePoints,
		ExperienceToNextLevel: d.ExperienceToNextLevel,
		Badges:                make([]progress.UnlockedBadge, 0, len(d.Badges)),
		Streaks: progress.Streaks{
			LoginStreak:        d.Streaks.LoginStreak,
			LearningStreak:     d.Streaks.LearningStreak,
			BestLoginStreak:    d.Streaks.BestLoginStreak,
			BestLearningStreak: d.Streaks.BestLearningStreak,
		},
		Stats: progress.Stats{
			ToolsUsed:                 make(map[string]struct{}, len(d.Stats.ToolsUsed)),
			AssessmentsCompleted:      d.Stats.AssessmentsCompleted,
			PortfoliosCreated:         d.Stats.PortfoliosCreated,
			EducationModulesCompleted: d.Stats.EducationModulesCompleted,
			PageViews:                 copyCounts(d.Stats.PageViews),
			Events:                    copyCounts(d.Stats.Events),
		},
		LastActivity: d.LastActivity.UTC(),
		CreatedAt:    d.CreatedAt.UTC(),
	}

	var err error
	if s.Streaks.LastLoginDate, err = parseDay(d.Streaks.LastLoginDate); err != nil {
		return nil, fmt.Errorf("document: last login date: %w", err)
	}
	if s.Streaks.LastLearningDate, err = parseDay(d.Streaks.LastLearningDate); err != nil {
		return nil, fmt.Errorf("document: last learning date: %w", err)
	}

	for _, tool := range d.Stats.ToolsUsed {
		s.Stats.AddTool(tool)
	}

	seen := make(map[shared.BadgeID]bool, len(d.Badges))
	for _, b := range d.Badges {
		id := shared.NormalizeBadgeID(b.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		s.Badges = append(s.Badges, progress.UnlockedBadge{
			Badge: progress.Badge{
				ID:          id,
				Name:        b.Name,
				Description: b.Description,
				Icon:        b.Icon,
				Category:    b.Category,
				Rarity:      progress.Rarity(b.Rarity),
				Points:      b.Points,
			},
			IsUnlocked: true,
			UnlockedAt: b.UnlockedAt.UTC(),
		})
	}
	return s, nil
}

// Marshal encodes a domain snapshot.
func Marshal(s *progress.Snapshot) ([]byte, error) {
	return json.Marshal(FromDomain(s))
}

// Unmarshal decodes a domain snapshot.
func Unmarshal(data []byte) (*progress.Snapshot, error) {
	var doc Snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	return doc.ToDomain()
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return timeutil.FormatDateStr(t)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return timeutil.ParseDate(s)
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
