// ABOUTME: Test doubles and setup helpers for the menu service tests.
// ABOUTME: Provides a counting fetcher, failing and blocking store wrappers, and a temp SQLite store.
package menu

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
	"github.com/harperreed/littlelemon/internal/remote"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls atomic.Int32
	items []models.MenuItem
	err   error
	gate  chan struct{}
}

func (f *fakeFetcher) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.MenuItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

var errBoom = errors.New("boom")

// failingInsertRepo fails every InsertMany after storing nothing.
type failingInsertRepo struct {
	storage.Repository
}

func (r failingInsertRepo) InsertMany(ctx context.Context, items []models.MenuItem) (int, error) {
	return 0, errBoom
}

// blockingQueryRepo blocks queries whose text is "slow" until their context ends.
type blockingQueryRepo struct {
	storage.Repository
	started chan struct{}
	once    sync.Once
}

func (r *blockingQueryRepo) Query(ctx context.Context, f models.Filter) ([]models.MenuItem, error) {
	if f.Text == "slow" {
		r.once.Do(func() { close(r.started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.Repository.Query(ctx, f)
}

func setupStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "menu.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedStore(t *testing.T, db *storage.DB, items []models.MenuItem, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.EnsureSchema(ctx))
	_, err := db.InsertMany(ctx, items)
	require.NoError(t, err)
	require.NoError(t, db.MarkPopulated(ctx, "seed", at))
}

func remoteMenu() []models.MenuItem {
	return []models.MenuItem{
		{Title: "Greek Salad", Description: "Crispy lettuce", Price: "12.99", ImageFileName: "greekSalad.jpg", Category: "starters"},
		{Title: "Mango Salad", Description: "Fresh mango", Price: "9.00", ImageFileName: "mango.jpg", Category: "starters"},
		{Title: "Lemon Pasta", Description: "Pasta", Price: "15.00", ImageFileName: "pasta.jpg", Category: "mains"},
		{Title: "Grilled Fish", Description: "Fish", Price: "20.00", ImageFileName: "fish.jpg", Category: "mains"},
		{Title: "Lemon Dessert", Description: "Cake", Price: "6.99", ImageFileName: "lemonDessert.jpg", Category: "desserts"},
		{Title: "Lemonade", Description: "Drink", Price: "3.50", ImageFileName: "lemonade.jpg", Category: "drinks"},
	}
}

func waitPersisted(t *testing.T, res *BootstrapResult) error {
	t.Helper()
	select {
	case err := <-res.Persisted:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for persistence")
		return nil
	}
}

func titlesOf(items []models.MenuItem) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.Title
	}
	return out
}

var _ remote.Fetcher = (*fakeFetcher)(nil)

func storageState(at time.Time) storage.CacheState {
	return storage.CacheState{Count: 1, PopulatedAt: at}
}
