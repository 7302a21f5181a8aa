package progress

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// Типы событий, которые обновляют типизированную статистику.
const (
	EventPageView                 = "page_view"
	EventToolUsed                 = "tool_used"
	EventAssessmentCompleted      = "assessment_completed"
	EventPortfolioCreated         = "portfolio_created"
	EventEducationModuleCompleted = "education_module_completed"
)

// unknownPage - ключ для page_view без указанной страницы.
const unknownPage = "unknown"

// Stats - счётчики активности пользователя.
type Stats struct {
	// ToolsUsed - множество использованных инструментов.
	ToolsUsed map[string]struct{}

	AssessmentsCompleted      int
	PortfoliosCreated         int
	EducationModulesCompleted int

	// PageViews - просмотры по странице.
	PageViews map[string]int

	// Events - счётчики по типу события (кроме page_view).
	Events map[string]int
}

func newStats() Stats {
	return Stats{
		ToolsUsed: make(map[string]struct{}),
		PageViews: make(map[string]int),
		Events:    make(map[string]int),
	}
}

// AddTool добавляет инструмент в множество. Возвращает true, если он новый.
func (s *Stats) AddTool(tool string) bool {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return false
	}
	if s.ToolsUsed == nil {
		s.ToolsUsed = make(map[string]struct{})
	}
	if _, ok := s.ToolsUsed[tool]; ok {
		return false
	}
	s.ToolsUsed[tool] = struct{}{}
	return true
}

// HasTool проверяет, использовался ли инструмент.
func (s *Stats) HasTool(tool string) bool {
	_, ok := s.ToolsUsed[tool]
	return ok
}

// ToolNames возвращает отсортированный список инструментов.
func (s *Stats) ToolNames() []string {
	names := make([]string, 0, len(s.ToolsUsed))
	for name := range s.ToolsUsed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Stats) clone() Stats {
	c := Stats{
		ToolsUsed:                 make(map[string]struct{}, len(s.ToolsUsed)),
		AssessmentsCompleted:      s.AssessmentsCompleted,
		PortfoliosCreated:         s.PortfoliosCreated,
		EducationModulesCompleted: s.EducationModulesCompleted,
		PageViews:                 make(map[string]int, len(s.PageViews)),
		Events:                    make(map[string]int, len(s.Events)),
	}
	for k := range s.ToolsUsed {
		c.ToolsUsed[k] = struct{}{}
	}
	for k, v := range s.PageViews {
		c.PageViews[k] = v
	}
	for k, v := range s.Events {
		c.Events[k] = v
	}
	return c
}

// Streaks - серии активных дней.
type Streaks struct {
	LoginStreak      int
	LearningStreak   int
	LastLoginDate    time.Time
	LastLearningDate time.Time

	BestLoginStreak    int
	BestLearningStreak int
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - полное состояние прогресса пользователя.
type Snapshot struct {
	UserID shared.UserID

	// Version увеличивается на 1 при каждой применённой мутации.
	Version int64

	TotalPoints int
	Level       int

	// ExperiencePoints - очки внутри текущего уровня.
	ExperiencePoints int
	// ExperienceToNextLevel - сколько очков не хватает до следующего уровня.
	ExperienceToNextLevel int

	Badges  []UnlockedBadge
	Streaks Streaks
	Stats   Stats

	LastActivity time.Time
	CreatedAt    time.Time
}

// NewSnapshot создаёт нулевое состояние для пользователя.
func NewSnapshot(userID shared.UserID, levels LevelTable, now time.Time) *Snapshot {
	s := &Snapshot{
		UserID:       userID,
		Stats:        newStats(),
		Badges:       []UnlockedBadge{},
		LastActivity: now.UTC(),
		CreatedAt:    now.UTC(),
	}
	s.Recompute(levels)
	return s
}

// Clone возвращает глубокую копию снапшота.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Badges = append([]UnlockedBadge(nil), s.Badges...)
	if c.Badges == nil {
		c.Badges = []UnlockedBadge{}
	}
	c.Stats = s.Stats.clone()
	return &c
}

// Recompute пересчитывает уровень и поля опыта из TotalPoints.
func (s *Snapshot) Recompute(levels LevelTable) {
	p := levels.ProgressToNextLevel(s.TotalPoints)
	s.Level = p.Current
	s.ExperiencePoints = p.PointsIntoLevel
	s.ExperienceToNextLevel = p.PointsToNext
}

// AddPoints начисляет неотрицательное количество очков и пересчитывает уровень.
// Возвращает true, если уровень вырос.
func (s *Snapshot) AddPoints(levels LevelTable, amount int) (leveledUp bool, err error) {
	pts, err := shared.NewPoints(amount)
	if err != nil {
		return false, err
	}
	before := s.Level
	s.TotalPoints = shared.Points(s.TotalPoints).Add(pts.Int()).Int()
	s.Recompute(levels)
	return s.Level > before, nil
}

// HasBadge проверяет наличие значка.
func (s *Snapshot) HasBadge(id shared.BadgeID) bool {
	for _, b := range s.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Bump фиксирует применённую мутацию.
func (s *Snapshot) Bump(now time.Time) {
	s.Version++
	s.LastActivity = now.UTC()
}

// RecordEvent обновляет статистику для события.
// page_view считается в PageViews, остальные типы в Events; типизированные
// события дополнительно обновляют соответствующие счётчики.
func (s *Snapshot) RecordEvent(eventType string, data map[string]any) error {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return shared.ErrEmptyEventType
	}

	if s.Stats.PageViews == nil || s.Stats.Events == nil || s.Stats.ToolsUsed == nil {
		fresh := newStats()
		for k, v := range s.Stats.PageViews {
			fresh.PageViews[k] = v
		}
		for k, v := range s.Stats.Events {
			fresh.Events[k] = v
		}
		for k := range s.Stats.ToolsUsed {
			fresh.ToolsUsed[k] = struct{}{}
		}
		fresh.AssessmentsCompleted = s.Stats.AssessmentsCompleted
		fresh.PortfoliosCreated = s.Stats.PortfoliosCreated
		fresh.EducationModulesCompleted = s.Stats.EducationModulesCompleted
		s.Stats = fresh
	}

	if eventType == EventPageView {
		page := stringField(data, "page")
		if page == "" {
			page = unknownPage
		}
		s.Stats.PageViews[page]++
		return nil
	}

	s.Stats.Events[eventType]++

	switch eventType {
	case EventAssessmentCompleted:
		s.Stats.AssessmentsCompleted++
	case EventPortfolioCreated:
		s.Stats.PortfoliosCreated++
	case EventEducationModuleCompleted:
		s.Stats.EducationModulesCompleted++
	case EventToolUsed:
		s.Stats.AddTool(stringField(data, "tool"))
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
