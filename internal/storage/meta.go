// ABOUTME: Cache bookkeeping for the menu table.
// ABOUTME: Tracks row count, population time, and population generation.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CacheState reports the row count and the last population stamp.
func (d *DB) CacheState(ctx context.Context) (CacheState, error) {
	var state CacheState
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM menu").Scan(&state.Count); err != nil {
		return CacheState{}, fmt.Errorf("count menu: %w", err)
	}

	populatedAt, err := d.getMeta(ctx, MetaPopulatedAt)
	if err != nil {
		return CacheState{}, err
	}
	if populatedAt != "" {
		// An unparseable stamp reads as unknown, which a staleness policy treats as stale.
		state.PopulatedAt, _ = time.Parse(time.RFC3339Nano, populatedAt)
	}

	state.Generation, err = d.getMeta(ctx, MetaGeneration)
	if err != nil {
		return CacheState{}, err
	}
	return state, nil
}

// MarkPopulated records when and by which generation the cache was filled.
func (d *DB) MarkPopulated(ctx context.Context, generation string, at time.Time) error {
	return setMeta(ctx, d.db, generation, at)
}

func (d *DB) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM cache_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read cache meta %s: %w", key, err)
	}
	return value, nil
}

func setMeta(ctx context.Context, e execer, generation string, at time.Time) error {
	query := `
		INSERT INTO cache_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := e.ExecContext(ctx, query, MetaPopulatedAt, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	if _, err := e.ExecContext(ctx, query, MetaGeneration, generation); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	return nil
}
