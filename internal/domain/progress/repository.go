package progress

import (
	"context"
	"time"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository - шлюз хранения снапшотов.
type Repository interface {
	// Load возвращает последний сохранённый снапшот.
	// Возвращает ошибку с видом shared.ErrNotFound, если снапшота нет.
	Load(ctx context.Context, userID shared.UserID) (*Snapshot, error)

	// Save сохраняет снапшот. Снапшот с версией не выше сохранённой
	// не перезаписывает более новый и возвращает ошибку с видом
	// shared.ErrStaleVersion.
	Save(ctx context.Context, snapshot *Snapshot) error
}

// SnapshotCache хранит последнюю сохранённую копию для офлайн-отображения.
type SnapshotCache interface {
	// Get возвращает закэшированный снапшот.
	// Возвращает ошибку с видом shared.ErrNotFound при промахе.
	Get(ctx context.Context, userID shared.UserID) (*Snapshot, error)

	// Set кэширует снапшот на ttl.
	Set(ctx context.Context, snapshot *Snapshot, ttl time.Duration) error

	// Delete удаляет запись.
	Delete(ctx context.Context, userID shared.UserID) error
}
