// ABOUTME: Shared test helpers for storage tests.
// ABOUTME: Provides setupTestDB and a fixed sample menu.
package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harperreed/littlelemon/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

func sampleMenu() []models.MenuItem {
	return []models.MenuItem{
		{Title: "Greek Salad", Description: "Crispy lettuce, peppers, olives", Price: "12.99", ImageFileName: "greekSalad.jpg", Category: "starters"},
		{Title: "Bruschetta", Description: "Grilled bread with garlic", Price: "7.99", ImageFileName: "bruschetta.jpg", Category: "starters"},
		{Title: "Grilled Fish", Description: "Fish with vegetables", Price: "20.00", ImageFileName: "grilledFish.jpg", Category: "mains"},
		{Title: "Lemon Pasta", Description: "Pasta with lemon sauce", Price: "15.00", ImageFileName: "pasta.jpg", Category: "mains"},
		{Title: "Lemon Dessert", Description: "Traditional lemon cake", Price: "6.99", ImageFileName: "lemonDessert.jpg", Category: "desserts"},
		{Title: "Mango Sorbet", Description: "Fresh mango", Price: "5.00", ImageFileName: "sorbet.jpg", Category: "desserts"},
		{Title: "Lemonade", Description: "Freshly squeezed", Price: "3.50", ImageFileName: "lemonade.jpg", Category: "drinks"},
	}
}

func seed(t *testing.T, db *DB, items []models.MenuItem) {
	t.Helper()
	n, err := db.InsertMany(context.Background(), items)
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if n != len(items) {
		t.Fatalf("InsertMany inserted %d, want %d", n, len(items))
	}
}

func titles(items []models.MenuItem) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.Title
	}
	return out
}
