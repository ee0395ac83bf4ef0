package db_test

import (
	"context"
	"fmt"
	"testing"

	hubdb "github.com/servicehub/servicehub/db"
	"github.com/servicehub/servicehub/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := db.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	return d
}

func TestMigrate_AppliesSchema(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := db.Migrate(ctx, d, hubdb.Migrations); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}

	for _, table := range []string{
		"users", "service_types", "workers", "requesters",
		"requester_services", "jobs", "job_services_used", "job_recurrence_changes",
	} {
		var count int
		row := d.QueryRow(ctx, `SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err := row.Scan(&count); err != nil {
			t.Fatalf("scan table count: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected table %q to exist", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := db.Migrate(ctx, d, hubdb.Migrations); err != nil {
		t.Fatalf("first Migrate error: %v", err)
	}
	if err := db.Migrate(ctx, d, hubdb.Migrations); err != nil {
		t.Fatalf("second Migrate error: %v", err)
	}

	var applied int
	row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`)
	if err := row.Scan(&applied); err != nil {
		t.Fatalf("scan applied count: %v", err)
	}
	if applied == 0 {
		t.Fatalf("expected at least one recorded migration")
	}
}

func TestMigrate_RecordsVersions(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := db.Migrate(ctx, d, hubdb.Migrations); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}

	var version string
	row := d.QueryRow(ctx, `SELECT version FROM schema_migrations ORDER BY version LIMIT 1`)
	if err := row.Scan(&version); err != nil {
		t.Fatalf("scan version: %v", err)
	}
	if version != "0001_init" {
		t.Fatalf("unexpected first migration version: %q", version)
	}
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	var on int
	row := d.QueryRow(ctx, `PRAGMA foreign_keys`)
	if err := row.Scan(&on); err != nil {
		t.Fatalf("scan pragma: %v", err)
	}
	if on != 1 {
		t.Fatalf("expected foreign_keys pragma to be on, got %d", on)
	}
}
