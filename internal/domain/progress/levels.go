package progress

import (
	"fmt"
	"sort"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL TABLE
// ══════════════════════════════════════════════════════════════════════════════

// LevelTable - упорядоченная таблица порогов очков.
// thresholds[i] - минимальное число очков для уровня i+1.
type LevelTable struct {
	thresholds []int
	titles     []string
}

// defaultThresholds - пороги уровней по умолчанию (15 уровней).
var defaultThresholds = []int{
	0, 100, 250, 500, 1000, 1750, 2750, 4000, 5500, 7500,
	10000, 13000, 16500, 20500, 25000,
}

var defaultTitles = []string{
	"Novice", "Beginner", "Apprentice", "Learner", "Explorer",
	"Analyst", "Strategist", "Planner", "Advisor", "Specialist",
	"Expert", "Veteran", "Master", "Grandmaster", "Legend",
}

// NewLevelTable создаёт таблицу уровней.
// Пороги должны начинаться с 0 и строго возрастать.
// titles может быть nil; иначе длина должна совпадать с thresholds.
func NewLevelTable(thresholds []int, titles []string) (LevelTable, error) {
	if len(thresholds) == 0 {
		return LevelTable{}, shared.WrapError("catalog", "NewLevelTable", shared.ErrInvalidCatalog, "level table is empty", nil)
	}
	if thresholds[0] != 0 {
		return LevelTable{}, shared.WrapError("catalog", "NewLevelTable", shared.ErrInvalidCatalog,
			fmt.Sprintf("first threshold must be 0, got %d", thresholds[0]), nil)
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return LevelTable{}, shared.WrapError("catalog", "NewLevelTable", shared.ErrInvalidCatalog,
				fmt.Sprintf("thresholds must be strictly ascending at level %d", i+1), nil)
		}
	}
	if titles != nil && len(titles) != len(thresholds) {
		return LevelTable{}, shared.WrapError("catalog", "NewLevelTable", shared.ErrInvalidCatalog,
			fmt.Sprintf("got %d titles for %d levels", len(titles), len(thresholds)), nil)
	}

	t := LevelTable{thresholds: append([]int(nil), thresholds...)}
	if titles != nil {
		t.titles = append([]string(nil), titles...)
	}
	return t, nil
}

// DefaultLevelTable возвращает таблицу уровней по умолчанию.
func DefaultLevelTable() LevelTable {
	t, err := NewLevelTable(defaultThresholds, defaultTitles)
	if err != nil {
		panic(err)
	}
	return t
}

// MaxLevel возвращает максимальный уровень.
func (t LevelTable) MaxLevel() int {
	return len(t.thresholds)
}

// Thresholds возвращает копию порогов.
func (t LevelTable) Thresholds() []int {
	return append([]int(nil), t.thresholds...)
}

// Titles возвращает копию названий уровней (может быть nil).
func (t LevelTable) Titles() []string {
	if t.titles == nil {
		return nil
	}
	return append([]string(nil), t.titles...)
}

// Threshold возвращает порог для уровня (1-based).
func (t LevelTable) Threshold(level int) int {
	if level <= 1 || len(t.thresholds) == 0 {
		return 0
	}
	if level > len(t.thresholds) {
		level = len(t.thresholds)
	}
	return t.thresholds[level-1]
}

// Title возвращает название уровня.
func (t LevelTable) Title(level int) string {
	if len(t.titles) == 0 {
		return fmt.Sprintf("Level %d", level)
	}
	if level < 1 {
		level = 1
	}
	if level > len(t.titles) {
		level = len(t.titles)
	}
	return t.titles[level-1]
}

// LevelOf возвращает наибольший уровень i+1, для которого points >= thresholds[i].
// Отрицательные очки дают уровень 1.
func (t LevelTable) LevelOf(points int) int {
	if len(t.thresholds) == 0 || points < 0 {
		return 1
	}
	// Количество порогов, которые не превышают points.
	return sort.Search(len(t.thresholds), func(i int) bool {
		return t.thresholds[i] > points
	})
}

// LevelProgress - положение пользователя внутри текущего уровня.
type LevelProgress struct {
	Current         int `json:"current"`
	Next            int `json:"next"`
	Percent         int `json:"percent"`
	PointsIntoLevel int `json:"pointsIntoLevel"`
	PointsToNext    int `json:"pointsToNext"`
}

// ProgressToNextLevel вычисляет процент прохождения текущего уровня (0..100).
// На максимальном уровне возвращает 100, а Next равен Current.
func (t LevelTable) ProgressToNextLevel(points int) LevelProgress {
	current := t.LevelOf(points)
	floor := t.Threshold(current)

	into := points - floor
	if into < 0 {
		into = 0
	}

	if current >= t.MaxLevel() {
		return LevelProgress{
			Current:         current,
			Next:            current,
			Percent:         100,
			PointsIntoLevel: into,
		}
	}

	ceil := t.thresholds[current]
	percent := into * 100 / (ceil - floor)
	if percent > 100 {
		percent = 100
	}

	return LevelProgress{
		Current:         current,
		Next:            current + 1,
		Percent:         percent,
		PointsIntoLevel: into,
		PointsToNext:    ceil - floor - into,
	}
}
