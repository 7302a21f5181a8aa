// Package sqlite provides a SQLite-backed progress snapshot store for
// single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/document"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/sqlite/migrations"
)

const migrationTable = "schema_migrations"

// Store persists progress snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps concurrent session savers from tripping SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Load returns the stored snapshot of a user.
func (s *Store) Load(ctx context.Context, userID shared.UserID) (*progress.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.NewPersistenceError("sqlite.Load", err)
	}

	var raw string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT document FROM progress_snapshots WHERE user_id = ?`,
		string(userID),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrSnapshotNotFound
		}
		return nil, shared.NewPersistenceError("sqlite.Load", err)
	}

	snap, err := document.Unmarshal([]byte(raw))
	if err != nil {
		return nil, shared.NewPersistenceError("sqlite.Load", err)
	}
	snap.UserID = userID
	return snap, nil
}

// Save upserts the snapshot. An equal or newer stored version rejects the
// write with shared.ErrSnapshotStale.
func (s *Store) Save(ctx context.Context, snap *progress.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return shared.NewPersistenceError("sqlite.Save", err)
	}

	raw, err := document.Marshal(snap)
	if err != nil {
		return shared.NewPersistenceError("sqlite.Save", fmt.Errorf("marshal snapshot: %w", err))
	}

	now := toMillis(time.Now())
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO progress_snapshots (user_id, version, total_points, level, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   version = excluded.version,
		   total_points = excluded.total_points,
		   level = excluded.level,
		   document = excluded.document,
		   updated_at = excluded.updated_at
		 WHERE progress_snapshots.version < excluded.version`,
		string(snap.UserID),
		snap.Version,
		snap.TotalPoints,
		snap.Level,
		string(raw),
		now,
		now,
	)
	if err != nil {
		return shared.NewPersistenceError("sqlite.Save", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return shared.NewPersistenceError("sqlite.Save", err)
	}
	if n == 0 {
		return shared.WrapError("sqlite", "Save", shared.ErrStaleVersion,
			fmt.Sprintf("stored version of %s is not older than %d", snap.UserID, snap.Version), shared.ErrSnapshotStale)
	}
	return nil
}

// applyMigrations executes embedded .sql files at most once each, in name order.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`, migrationTable)); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (?, ?)", migrationTable),
			file, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}
