package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMigrationsRoundTripPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TASKBOARD_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TASKBOARD_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, dialect, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()
	if dialect != DialectPostgres {
		t.Fatalf("expected a postgres url, got dialect %s", dialect)
	}

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	if err := ApplyMigrations(ctx, db, dialect); err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if err := RollbackMigrations(ctx, db, dialect); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, db, dialect); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}

	repo := NewSQLStore(db, dialect)
	user, created, err := repo.UpsertUser(ctx, User{ExternalID: "pg-1", Email: "pg@example.com", Name: "Pg"})
	if err != nil || !created {
		t.Fatalf("upsert user after reapply: created=%v err=%v", created, err)
	}
	if _, err := repo.GetUser(ctx, user.ID); err != nil {
		t.Fatalf("get user: %v", err)
	}
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}
