package postgres

import (
	"context"
	"fmt"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/document"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository implements progress.Repository for PostgreSQL.
type SnapshotRepository struct {
	db Querier
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db Querier) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Load returns the stored snapshot of a user.
func (r *SnapshotRepository) Load(ctx context.Context, userID shared.UserID) (*progress.Snapshot, error) {
	query := `SELECT document FROM progress_snapshots WHERE user_id = $1`

	var raw []byte
	if err := r.db.QueryRow(ctx, query, string(userID)).Scan(&raw); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSnapshotNotFound
		}
		return nil, shared.NewPersistenceError("postgres.Load", err)
	}

	snap, err := document.Unmarshal(raw)
	if err != nil {
		return nil, shared.NewPersistenceError("postgres.Load", err)
	}
	// The key column is authoritative over the document body.
	snap.UserID = userID
	return snap, nil
}

// Save upserts the snapshot. A stored row with an equal or newer version is
// left as is and the call fails with shared.ErrSnapshotStale.
func (r *SnapshotRepository) Save(ctx context.Context, snap *progress.Snapshot) error {
	query := `
		INSERT INTO progress_snapshots (user_id, version, total_points, level, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			version = EXCLUDED.version,
			total_points = EXCLUDED.total_points,
			level = EXCLUDED.level,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
		WHERE progress_snapshots.version < EXCLUDED.version
	`

	raw, err := document.Marshal(snap)
	if err != nil {
		return shared.NewPersistenceError("postgres.Save", fmt.Errorf("failed to marshal snapshot: %w", err))
	}

	tag, err := r.db.Exec(ctx, query,
		string(snap.UserID),
		snap.Version,
		snap.TotalPoints,
		snap.Level,
		raw,
	)
	if err != nil {
		return shared.NewPersistenceError("postgres.Save", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.WrapError("postgres", "Save", shared.ErrStaleVersion,
			fmt.Sprintf("stored version of %s is not older than %d", snap.UserID, snap.Version), shared.ErrSnapshotStale)
	}
	return nil
}
