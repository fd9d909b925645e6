// Package migrate applies the embedded SQL schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/narrativewatch/triage/internal/data/pgxutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// advisoryLockMigrations serializes concurrent replicas running migrations on start.
const advisoryLockMigrations = 7_340_001

// Run applies all SQL migrations embedded in this package. It is safe to call multiple times.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	files, err := Files()
	if err != nil {
		return err
	}

	logger := slog.Default().With("component", "migrations")
	for _, f := range files {
		if applyErr := applyMigration(ctx, db, logger, f); applyErr != nil {
			return applyErr
		}
	}
	return nil
}

// Files returns the embedded migration file names in apply order.
func Files() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applyMigration(ctx context.Context, db *sql.DB, logger *slog.Logger, file string) error {
	version := strings.TrimSuffix(file, ".sql")

	sqlBytes, err := migrationsFS.ReadFile("migrations/" + file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	return pgxutil.WithSQLTx(ctx, db, func(tx *sql.Tx) error {
		if _, lockErr := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockMigrations); lockErr != nil {
			return fmt.Errorf("lock migrations: %w", lockErr)
		}

		var exists bool
		if qErr := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&exists); qErr != nil {
			return fmt.Errorf("check migration %s: %w", file, qErr)
		}
		if exists {
			return nil
		}

		logger.InfoContext(ctx, "applying migration", "version", version)
		if _, execErr := tx.ExecContext(ctx, string(sqlBytes)); execErr != nil {
			return fmt.Errorf("exec migration %s: %w", file, execErr)
		}
		if _, insErr := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version,
		); insErr != nil {
			return fmt.Errorf("record migration %s: %w", file, insErr)
		}
		return nil
	})
}
