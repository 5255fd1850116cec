// ABOUTME: Tests for database initialization and schema migrations.
// ABOUTME: Verifies idempotent schema creation, versioning, and XDG path handling.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureSchemaCreatesTables(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{"menu", "cache_meta", migrationTable}
	for _, table := range tables {
		var count int
		err := db.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table).Scan(&count)
		if err != nil {
			t.Errorf("Error checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seed(t, db, sampleMenu()[:2])

	for i := 0; i < 3; i++ {
		if err := db.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema call %d failed: %v", i, err)
		}
	}

	items, err := db.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected rows to survive repeated EnsureSchema, got %d", len(items))
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("SchemaVersion() = %d, want 2", version)
	}
}

func TestEnsureSchemaAdoptsLegacyTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	// The table shape the app created before migrations existed.
	_, err = db.db.Exec(`CREATE TABLE IF NOT EXISTS menu (id integer primary key not null, title text, description text, price text, imageFileName text, category text);
		INSERT INTO menu (title, category) VALUES ('Greek Salad', 'starters');`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	items, err := db.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Greek Salad" {
		t.Errorf("legacy row not preserved: %+v", items)
	}
	if items[0].Description != "" {
		t.Errorf("NULL description should read as empty, got %q", items[0].Description)
	}
}

func TestUpMigration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE a (x);", "CREATE TABLE a (x);"},
		{"up only", "-- +migrate Up\nCREATE TABLE a (x);", "\nCREATE TABLE a (x);"},
		{"up and down", "-- +migrate Up\nCREATE TABLE a (x);\n-- +migrate Down\nDROP TABLE a;", "\nCREATE TABLE a (x);\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpMigration(tt.content); got != tt.want {
				t.Errorf("UpMigration() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", db.Path(), dbPath)
	}
}

func TestDefaultDBPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	path := DefaultDBPath()
	expected := filepath.Join(tmpDir, "littlelemon", "little_lemon.db")
	if path != expected {
		t.Errorf("DefaultDBPath() = %s, want %s", path, expected)
	}
}

func TestCacheStateEmpty(t *testing.T) {
	db := setupTestDB(t)

	state, err := db.CacheState(context.Background())
	if err != nil {
		t.Fatalf("CacheState failed: %v", err)
	}
	if !state.IsEmpty() {
		t.Errorf("expected empty state, got %+v", state)
	}
	if !state.PopulatedAt.IsZero() || state.Generation != "" {
		t.Errorf("expected no population stamp, got %+v", state)
	}
}
