package dbmigrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/bio-mcp/bio-mcp-amber/internal/db/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	set := migrate.NewMigrations()
	if err := set.Discover(migrations.FS); err != nil {
		t.Fatalf("discover: %v", err)
	}
	sorted := set.Sorted()
	if len(sorted) == 0 {
		t.Fatalf("no embedded migrations")
	}
	first := sorted[0]
	if first.Name != "20250601120000" || first.Comment != "create_amber_runs" {
		t.Fatalf("unexpected first migration %s_%s", first.Name, first.Comment)
	}
	if first.Up == nil || first.Down == nil {
		t.Fatalf("migration must be reversible")
	}
}

func TestNewManagerWithFSValidation(t *testing.T) {
	if _, err := NewManagerWithFS(nil, migrations.FS); err == nil {
		t.Fatalf("expected error without database")
	}
}

func offlineDB(t *testing.T) *bun.DB {
	t.Helper()
	// sql.OpenDB does not dial; migrator construction never touches the server.
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://amber@localhost:5432/amber?sslmode=disable")))
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = bunDB.Close() })
	return bunDB
}

func TestNewManagerUsesEmbeddedSetByDefault(t *testing.T) {
	if _, err := NewManager(offlineDB(t), ""); err != nil {
		t.Fatalf("NewManager: %v", err)
	}
}

func TestNewManagerRejectsEmptyFS(t *testing.T) {
	if _, err := NewManagerWithFS(offlineDB(t), fstest.MapFS{}); err == nil {
		t.Fatalf("expected error for a filesystem without migrations")
	}
}
