// ABOUTME: Repository interface for the local menu cache.
// ABOUTME: Defines the store contract shared by the SQLite, Postgres, and Charm backends.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
)

// Repository defines the storage interface for the menu cache.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Schema
	EnsureSchema(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)

	// Menu operations
	ReadAll(ctx context.Context) ([]models.MenuItem, error)
	InsertMany(ctx context.Context, items []models.MenuItem) (int, error)
	Query(ctx context.Context, f models.Filter) ([]models.MenuItem, error)

	// Cache bookkeeping
	CacheState(ctx context.Context) (CacheState, error)
	MarkPopulated(ctx context.Context, generation string, at time.Time) error
	ReplaceAll(ctx context.Context, items []models.MenuItem, generation string, at time.Time) error

	// Lifecycle
	Backend() string
	Close() error
}

// CacheState describes what the store currently holds.
type CacheState struct {
	Count       int       `json:"count"`
	PopulatedAt time.Time `json:"populated_at,omitempty"`
	Generation  string    `json:"generation,omitempty"`
}

// IsEmpty reports whether the menu table has no rows.
func (s CacheState) IsEmpty() bool {
	return s.Count == 0
}

// Keys of the cache_meta table.
const (
	MetaPopulatedAt = "populated_at"
	MetaGeneration  = "generation"
)

// EscapeLike escapes LIKE wildcards so text matches literally under ESCAPE '\'.
func EscapeLike(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(text)
}

// ContainsPattern returns the LIKE pattern for a literal substring match.
func ContainsPattern(text string) string {
	return "%" + EscapeLike(text) + "%"
}
