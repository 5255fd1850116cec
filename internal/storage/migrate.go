// ABOUTME: Data migration between menu storage backends.
// ABOUTME: Copies the cached menu and its population stamp from source to destination.

package storage

import (
	"context"
	"fmt"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Items      int
	Generation string
}

// MigrateData copies all menu items from src to dst storage.
// The destination must be empty; ids are reassigned by dst.
func MigrateData(ctx context.Context, src, dst Repository) (*MigrateSummary, error) {
	if err := dst.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare destination: %w", err)
	}
	if err := requireEmpty(ctx, dst); err != nil {
		return nil, err
	}

	items, err := src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source menu: %w", err)
	}

	state, err := src.CacheState(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source cache state: %w", err)
	}

	summary := &MigrateSummary{Generation: state.Generation}
	summary.Items, err = dst.InsertMany(ctx, items)
	if err != nil {
		return summary, fmt.Errorf("copy menu: %w", err)
	}

	if !state.PopulatedAt.IsZero() {
		if err := dst.MarkPopulated(ctx, state.Generation, state.PopulatedAt); err != nil {
			return summary, fmt.Errorf("copy cache stamp: %w", err)
		}
	}

	return summary, nil
}
