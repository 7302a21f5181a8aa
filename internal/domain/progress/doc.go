// Package progress содержит доменную модель прогрессии пользователя.
//
// Пакет определяет:
//
//   - LevelTable - таблицу порогов уровней и расчёт уровня по очкам
//   - Catalog - неизменяемый каталог значков (Badge) и достижений (AchievementDefinition)
//   - Snapshot - полное состояние прогресса одного пользователя
//   - AdvanceStreak - правило обновления серий (login, learning)
//   - Evaluator - поиск достижений, условия которых выполнены впервые
//   - Snapshot.UnlockBadge - идемпотентная выдача значка
//   - Интерфейсы хранилища: Repository, SnapshotCache
//
// # Архитектурные принципы
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - интерфейсы хранилища реализуются в infrastructure
//  3. Все инварианты снапшота поддерживаются методами Snapshot
//
// # Инварианты
//
// После каждой завершённой мутации:
//
//	snapshot.Level == catalog.Levels().LevelOf(snapshot.TotalPoints)
//	значки уникальны по ID и никогда не удаляются
//	награда достижения выдаётся не более одного раза
//	ToolsUsed - множество
//
// Факт выполнения достижения хранится только как наличие его значка-награды.
//
// # Пример
//
//	catalog := progress.DefaultCatalog()
//	now := time.Now()
//	snap := progress.NewSnapshot("user-1", catalog.Levels(), now)
//	_ = snap.RecordEvent(progress.EventAssessmentCompleted, nil)
//	grants := progress.NewEvaluator(catalog).Apply(snap, now)
package progress
