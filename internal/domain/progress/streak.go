package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK (Серия активных дней)
// ══════════════════════════════════════════════════════════════════════════════

// StreakKind - вид серии.
type StreakKind string

const (
	StreakLogin    StreakKind = "login"
	StreakLearning StreakKind = "learning"
)

// ParseStreakKind разбирает вид серии. Неизвестный вид - ошибка валидации.
func ParseStreakKind(raw string) (StreakKind, error) {
	k := StreakKind(strings.ToLower(strings.TrimSpace(raw)))
	switch k {
	case StreakLogin, StreakLearning:
		return k, nil
	}
	return "", shared.WrapError("progress", "UpdateStreak", shared.ErrUnknownStreakKind,
		fmt.Sprintf("streak kind %q", raw), nil)
}

// StreakState - состояние одной серии.
type StreakState struct {
	Count    int
	LastDate time.Time
	Best     int
}

// AdvanceStreak применяет активность в день today:
//
//	нет предыдущей даты       -> 1
//	тот же календарный день   -> без изменений
//	ровно следующий день      -> +1
//	иначе (пропуск или дата в будущем) -> 1
//
// Дни считаются в UTC.
func AdvanceStreak(st StreakState, today time.Time) StreakState {
	day := timeutil.StartOfDay(today)

	if st.LastDate.IsZero() {
		st.Count = 1
	} else {
		switch timeutil.DayDiff(st.LastDate, day) {
		case 0:
			return st
		case 1:
			st.Count++
		default:
			st.Count = 1
		}
	}

	st.LastDate = day
	if st.Count > st.Best {
		st.Best = st.Count
	}
	return st
}

// Get возвращает состояние серии указанного вида.
func (s *Streaks) Get(kind StreakKind) StreakState {
	switch kind {
	case StreakLogin:
		return StreakState{Count: s.LoginStreak, LastDate: s.LastLoginDate, Best: s.BestLoginStreak}
	case StreakLearning:
		return StreakState{Count: s.LearningStreak, LastDate: s.LastLearningDate, Best: s.BestLearningStreak}
	}
	return StreakState{}
}

// Set сохраняет состояние серии указанного вида.
func (s *Streaks) Set(kind StreakKind, st StreakState) {
	switch kind {
	case StreakLogin:
		s.LoginStreak, s.LastLoginDate, s.BestLoginStreak = st.Count, st.LastDate, st.Best
	case StreakLearning:
		s.LearningStreak, s.LastLearningDate, s.BestLearningStreak = st.Count, st.LastDate, st.Best
	}
}

// AdvanceStreak обновляет серию снапшота и возвращает значения до и после.
func (s *Snapshot) AdvanceStreak(kind StreakKind, now time.Time) (before, after int) {
	prev := s.Streaks.Get(kind)
	next := AdvanceStreak(prev, now)
	s.Streaks.Set(kind, next)
	return prev.Count, next.Count
}
