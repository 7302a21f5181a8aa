package progress

import (
	"fmt"
	"strings"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// Metric - имя величины снапшота, с которой сравнивается цель достижения.
type Metric string

const (
	MetricAssessmentsCompleted      Metric = "assessments_completed"
	MetricPortfoliosCreated         Metric = "portfolios_created"
	MetricEducationModulesCompleted Metric = "education_modules_completed"
	MetricToolsUsed                 Metric = "tools_used"
	MetricLoginStreak               Metric = "login_streak"
	MetricLearningStreak            Metric = "learning_streak"
	MetricLevel                     Metric = "level"
	MetricTotalPoints               Metric = "total_points"

	// Параметризованные метрики: "tool:<name>" и "event:<type>".
	metricToolPrefix  = "tool:"
	metricEventPrefix = "event:"
)

// ToolMetric возвращает метрику "инструмент использован хотя бы раз".
func ToolMetric(tool string) Metric {
	return Metric(metricToolPrefix + tool)
}

// EventMetric возвращает метрику счётчика событий указанного типа.
func EventMetric(eventType string) Metric {
	return Metric(metricEventPrefix + eventType)
}

// Validate проверяет, что метрика известна.
func (m Metric) Validate() error {
	switch m {
	case MetricAssessmentsCompleted, MetricPortfoliosCreated, MetricEducationModulesCompleted,
		MetricToolsUsed, MetricLoginStreak, MetricLearningStreak, MetricLevel, MetricTotalPoints:
		return nil
	}
	s := string(m)
	for _, prefix := range []string{metricToolPrefix, metricEventPrefix} {
		if strings.HasPrefix(s, prefix) {
			if strings.TrimSpace(strings.TrimPrefix(s, prefix)) == "" {
				break
			}
			return nil
		}
	}
	return shared.WrapError("catalog", "Validate", shared.ErrUnknownMetric, fmt.Sprintf("metric %q", s), nil)
}

// MetricValue возвращает текущее значение метрики снапшота.
// Неизвестная метрика даёт 0.
func (s *Snapshot) MetricValue(m Metric) int {
	switch m {
	case MetricAssessmentsCompleted:
		return s.Stats.AssessmentsCompleted
	case MetricPortfoliosCreated:
		return s.Stats.PortfoliosCreated
	case MetricEducationModulesCompleted:
		return s.Stats.EducationModulesCompleted
	case MetricToolsUsed:
		return len(s.Stats.ToolsUsed)
	case MetricLoginStreak:
		return s.Streaks.LoginStreak
	case MetricLearningStreak:
		return s.Streaks.LearningStreak
	case MetricLevel:
		return s.Level
	case MetricTotalPoints:
		return s.TotalPoints
	}

	str := string(m)
	switch {
	case strings.HasPrefix(str, metricToolPrefix):
		if s.Stats.HasTool(strings.TrimPrefix(str, metricToolPrefix)) {
			return 1
		}
		return 0
	case strings.HasPrefix(str, metricEventPrefix):
		return s.Stats.Events[strings.TrimPrefix(str, metricEventPrefix)]
	}
	return 0
}
