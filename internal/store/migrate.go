package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrationFiles embed.FS

// ApplyMigrations runs every pending *.up.sql for dialect, each in its own
// transaction, recording versions in schema_migrations.
func ApplyMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	dir, err := fs.Sub(migrationFiles, path.Join("migrations", string(dialect)))
	if err != nil {
		return fmt.Errorf("open migrations for %s: %w", dialect, err)
	}
	return applyMigrationsFS(ctx, db, dialect, dir)
}

func applyMigrationsFS(ctx context.Context, db *sql.DB, dialect Dialect, dir fs.FS) error {
	if err := ensureMigrationsTable(ctx, db, dialect); err != nil {
		return err
	}

	files, err := migrationNames(dir, ".up.sql")
	if err != nil {
		return err
	}

	for _, version := range files {
		migrated, err := isMigrated(ctx, db, dialect, version)
		if err != nil {
			return err
		}
		if migrated {
			continue
		}

		contents, err := fs.ReadFile(dir, version)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, rebind(dialect, `INSERT INTO schema_migrations(version) VALUES(?)`), version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", version, err)
		}
	}
	return nil
}

// RollbackMigrations runs every recorded *.down.sql in reverse order.
func RollbackMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	dir, err := fs.Sub(migrationFiles, path.Join("migrations", string(dialect)))
	if err != nil {
		return fmt.Errorf("open migrations for %s: %w", dialect, err)
	}
	if err := ensureMigrationsTable(ctx, db, dialect); err != nil {
		return err
	}

	files, err := migrationNames(dir, ".down.sql")
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, down := range files {
		version := strings.TrimSuffix(down, ".down.sql") + ".up.sql"
		migrated, err := isMigrated(ctx, db, dialect, version)
		if err != nil {
			return err
		}
		if !migrated {
			continue
		}
		contents, err := fs.ReadFile(dir, down)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", down, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin rollback tx %s: %w", down, err)
		}
		if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute rollback %s: %w", down, err)
		}
		if _, err := tx.ExecContext(ctx, rebind(dialect, `DELETE FROM schema_migrations WHERE version=?`), version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("unrecord migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit rollback %s: %w", down, err)
		}
	}
	return nil
}

func migrationNames(dir fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB, dialect Dialect) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if dialect == DialectSQLite {
		ddl = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func isMigrated(ctx context.Context, db *sql.DB, dialect Dialect, version string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, rebind(dialect, `SELECT COUNT(*) FROM schema_migrations WHERE version=?`), version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return count > 0, nil
}
