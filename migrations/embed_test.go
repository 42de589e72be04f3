package migrations_test

import (
	"context"
	"testing"

	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-panelbridge/migrations"
)

func TestEmbeddedMigrationsApplyAndRollBack(t *testing.T) {
	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	ctx := context.Background()
	all, err := database.LoadMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}

	n, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != len(all) {
		t.Errorf("applied = %d, want %d", n, len(all))
	}

	for _, table := range []string{"actuations", "connection_events"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}

	for range all {
		if err := db.MigrateDown(ctx, migrations.FS); err != nil {
			t.Fatalf("MigrateDown() error = %v", err)
		}
	}
	_, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != len(all) {
		t.Errorf("pending after full rollback = %d, want %d", len(pending), len(all))
	}
}
