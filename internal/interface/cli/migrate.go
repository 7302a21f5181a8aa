package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/sqlite"
)

type migrateOptions struct {
	databaseURL string
	sqlitePath  string
	timeout     time.Duration
	status      bool
	rollback    bool
}

// MigrationStatus is one row of migrate --status.
type MigrationStatus struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply snapshot store migrations",
		Long: `Apply pending migrations to the snapshot store.

Postgres is used when --database-url (or DATABASE_URL) is set; otherwise
--sqlite names a database file to create or upgrade. --status and
--rollback are available for Postgres only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.databaseURL == "" && opts.sqlitePath == "" {
				opts.databaseURL = os.Getenv("DATABASE_URL")
			}
			if opts.status && opts.rollback {
				return errors.New("--status and --rollback are mutually exclusive")
			}
			if opts.databaseURL == "" && (opts.status || opts.rollback) {
				return errors.New("--status and --rollback need a Postgres database")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			switch {
			case opts.databaseURL != "":
				return migratePostgres(ctx, cmd, rootOpts, opts)
			case opts.sqlitePath != "":
				return migrateSQLite(cmd, opts.sqlitePath)
			default:
				return errors.New("either --database-url or --sqlite is required")
			}
		},
	}

	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "Postgres connection URL")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite", "", "SQLite database file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	cmd.Flags().BoolVar(&opts.status, "status", false, "list migrations and whether they are applied")
	cmd.Flags().BoolVar(&opts.rollback, "rollback", false, "revert the last applied migration")

	return cmd
}

func migratePostgres(ctx context.Context, cmd *cobra.Command, rootOpts *RootOptions, opts *migrateOptions) error {
	conn, err := postgres.NewConnectionFromURL(ctx, opts.databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	migrator := postgres.NewMigrator(conn)
	out := cmd.OutOrStdout()

	switch {
	case opts.status:
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		rows := make([]MigrationStatus, 0, len(migrations))
		for _, m := range migrations {
			row := MigrationStatus{Version: m.Version, Name: m.Name, Applied: m.IsApplied}
			if m.IsApplied {
				at := m.AppliedAt.UTC()
				row.AppliedAt = &at
			}
			rows = append(rows, row)
		}
		if rootOpts.Format == "json" {
			return writeJSON(out, rows)
		}
		for _, r := range rows {
			state := "pending"
			if r.Applied {
				state = "applied " + r.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%03d  %-32s %s\n", r.Version, r.Name, state)
		}
		return nil

	case opts.rollback:
		if err := migrator.Rollback(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "postgres: rolled back the last migration")
		return nil
	}

	applied, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "postgres: applied %d migration(s)\n", applied)
	return nil
}

func migrateSQLite(cmd *cobra.Command, path string) error {
	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sqlite: %s is up to date\n", path)
	return nil
}
