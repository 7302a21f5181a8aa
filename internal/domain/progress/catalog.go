package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// Rarity - редкость значка.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IsValid проверяет, что редкость известна.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// Badge - запись каталога значков.
type Badge struct {
	ID          shared.BadgeID
	Name        string
	Description string
	Icon        string
	Category    string
	Rarity      Rarity
	Points      int
}

// UnlockedBadge - значок, полученный пользователем.
type UnlockedBadge struct {
	Badge
	IsUnlocked bool
	UnlockedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Reward - награда за достижение.
// BonusPoints начисляются сверх очков значка и не дублируют их.
type Reward struct {
	BadgeID     shared.BadgeID
	BonusPoints int
}

// AchievementDefinition описывает достижение: метрику, цель и награду.
type AchievementDefinition struct {
	ID          shared.AchievementID
	Name        string
	Description string
	Metric      Metric
	Target      int
	Reward      Reward
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - неизменяемый каталог уровней, значков и достижений.
// Безопасен для одновременного чтения из нескольких сессий.
type Catalog struct {
	levels       LevelTable
	badges       []Badge
	badgeIndex   map[shared.BadgeID]int
	achievements []AchievementDefinition
	achIndex     map[shared.AchievementID]int
}

// NewCatalog проверяет данные и создаёт каталог.
// Идентификаторы должны быть уже в канонической форме: значки в UPPER_SNAKE,
// достижения в lower_snake. У каждого достижения свой значок-награда.
func NewCatalog(levels LevelTable, badges []Badge, achievements []AchievementDefinition) (*Catalog, error) {
	if levels.MaxLevel() == 0 {
		return nil, invalidCatalog("level table is empty")
	}

	c := &Catalog{
		levels:       levels,
		badges:       make([]Badge, 0, len(badges)),
		badgeIndex:   make(map[shared.BadgeID]int, len(badges)),
		achievements: make([]AchievementDefinition, 0, len(achievements)),
		achIndex:     make(map[shared.AchievementID]int, len(achievements)),
	}

	for _, b := range badges {
		if !b.ID.IsCanonical() {
			return nil, invalidCatalog(fmt.Sprintf("badge id %q is not canonical (want %q)", b.ID, shared.NormalizeBadgeID(string(b.ID))))
		}
		if _, dup := c.badgeIndex[b.ID]; dup {
			return nil, invalidCatalog(fmt.Sprintf("duplicate badge id %q", b.ID))
		}
		if strings.TrimSpace(b.Name) == "" {
			return nil, invalidCatalog(fmt.Sprintf("badge %q has no name", b.ID))
		}
		if b.Points < 0 {
			return nil, invalidCatalog(fmt.Sprintf("badge %q has negative points", b.ID))
		}
		if b.Rarity == "" {
			b.Rarity = RarityCommon
		}
		if !b.Rarity.IsValid() {
			return nil, invalidCatalog(fmt.Sprintf("badge %q has unknown rarity %q", b.ID, b.Rarity))
		}
		c.badgeIndex[b.ID] = len(c.badges)
		c.badges = append(c.badges, b)
	}

	rewarded := make(map[shared.BadgeID]shared.AchievementID, len(achievements))
	for _, a := range achievements {
		if !a.ID.IsCanonical() {
			return nil, invalidCatalog(fmt.Sprintf("achievement id %q is not canonical", a.ID))
		}
		if _, dup := c.achIndex[a.ID]; dup {
			return nil, invalidCatalog(fmt.Sprintf("duplicate achievement id %q", a.ID))
		}
		if err := a.Metric.Validate(); err != nil {
			return nil, shared.WrapError("catalog", "Validate", shared.ErrInvalidCatalog,
				fmt.Sprintf("achievement %q", a.ID), err)
		}
		if a.Target <= 0 {
			return nil, invalidCatalog(fmt.Sprintf("achievement %q needs a positive target", a.ID))
		}
		if a.Reward.BonusPoints < 0 {
			return nil, invalidCatalog(fmt.Sprintf("achievement %q has negative bonus points", a.ID))
		}
		if _, ok := c.badgeIndex[a.Reward.BadgeID]; !ok {
			return nil, invalidCatalog(fmt.Sprintf("achievement %q rewards unknown badge %q", a.ID, a.Reward.BadgeID))
		}
		if other, taken := rewarded[a.Reward.BadgeID]; taken {
			return nil, invalidCatalog(fmt.Sprintf("badge %q is the reward of both %q and %q", a.Reward.BadgeID, other, a.ID))
		}
		rewarded[a.Reward.BadgeID] = a.ID
		c.achIndex[a.ID] = len(c.achievements)
		c.achievements = append(c.achievements, a)
	}

	return c, nil
}

func invalidCatalog(msg string) error {
	return shared.WrapError("catalog", "Validate", shared.ErrInvalidCatalog, msg, nil)
}

// Levels возвращает таблицу уровней.
func (c *Catalog) Levels() LevelTable {
	return c.levels
}

// Badge возвращает значок по каноническому ID.
func (c *Catalog) Badge(id shared.BadgeID) (Badge, bool) {
	i, ok := c.badgeIndex[id]
	if !ok {
		return Badge{}, false
	}
	return c.badges[i], true
}

// Badges возвращает копию списка значков в порядке каталога.
func (c *Catalog) Badges() []Badge {
	return append([]Badge(nil), c.badges...)
}

// Achievement возвращает определение достижения по ID.
func (c *Catalog) Achievement(id shared.AchievementID) (AchievementDefinition, bool) {
	i, ok := c.achIndex[id]
	if !ok {
		return AchievementDefinition{}, false
	}
	return c.achievements[i], true
}

// Achievements возвращает копию списка достижений в порядке каталога.
func (c *Catalog) Achievements() []AchievementDefinition {
	return append([]AchievementDefinition(nil), c.achievements...)
}

// AchievementFor возвращает достижение, наградой которого является значок.
func (c *Catalog) AchievementFor(badge shared.BadgeID) (AchievementDefinition, bool) {
	for _, a := range c.achievements {
		if a.Reward.BadgeID == badge {
			return a, true
		}
	}
	return AchievementDefinition{}, false
}
