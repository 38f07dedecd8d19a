package database

import (
	"context"
	"fmt"
	"io/fs"
	"slices"

	"github.com/jackc/pgx/v5"
)

// MigrateUp applies every embedded migration in order on the given
// connection. It does not record schema versions; use Migrator for
// versioned migrations.
func MigrateUp(ctx context.Context, db *pgx.Conn) error {
	return execMigrations(ctx, db, "migrations/*.up.sql", false)
}

// MigrateDown reverts every embedded migration in reverse order.
func MigrateDown(ctx context.Context, db *pgx.Conn) error {
	return execMigrations(ctx, db, "migrations/*.down.sql", true)
}

func execMigrations(ctx context.Context, db *pgx.Conn, pattern string, reverse bool) error {
	names, err := fs.Glob(migrationsFS, pattern)
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	slices.Sort(names)
	if reverse {
		slices.Reverse(names)
	}

	for _, name := range names {
		contents, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
	}
	return nil
}
