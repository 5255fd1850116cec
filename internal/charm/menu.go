// ABOUTME: Menu cache operations for Charm KV storage.
// ABOUTME: Stores items under zero-padded id keys and filters client-side.
package charm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
	"github.com/harperreed/littlelemon/internal/storage"
)

const (
	metaSchema      = MetaPrefix + "schema"
	metaSeq         = MetaPrefix + "seq"
	metaPopulatedAt = MetaPrefix + storage.MetaPopulatedAt
	metaGeneration  = MetaPrefix + storage.MetaGeneration

	schemaVersion = 1
)

var _ storage.Repository = (*Client)(nil)

// itemKey builds the key for a menu item. Ids are zero-padded so keys sort by id.
func itemKey(id int64) string {
	return fmt.Sprintf("%s%020d", MenuPrefix, id)
}

// parseItemKey extracts the id from a menu item key.
func parseItemKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, MenuPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Backend names the storage engine.
func (c *Client) Backend() string {
	return "charm"
}

// EnsureSchema records the key layout version. Read-only stores are left as they are.
func (c *Client) EnsureSchema(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return nil
	}
	current, err := c.get(metaSchema)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current != nil {
		return nil
	}
	return c.kv.Set([]byte(metaSchema), []byte(strconv.Itoa(schemaVersion)))
}

// SchemaVersion returns the recorded key layout version, or 0 if none.
func (c *Client) SchemaVersion(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, err := c.get(metaSchema)
	if err != nil || val == nil {
		return 0, err
	}
	return strconv.Atoi(string(val))
}

// decodeItems unmarshals menu entries. A corrupt value fails the whole read.
func decodeItems(entries []entry) ([]models.MenuItem, error) {
	items := make([]models.MenuItem, 0, len(entries))
	for _, e := range entries {
		m, err := unmarshalJSON[models.MenuItem](e.value)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.key, err)
		}
		items = append(items, *m)
	}
	return items, nil
}

// ReadAll returns every cached menu item ordered by id.
func (c *Client) ReadAll(ctx context.Context) ([]models.MenuItem, error) {
	entries, err := c.listByPrefix(MenuPrefix)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}

	items, err := decodeItems(entries)
	if err != nil {
		return nil, err
	}
	sortByID(items)
	return items, nil
}

// InsertMany appends items with fresh ids. Writes are not atomic: on
// failure it returns how many items were stored before the failing one.
func (c *Client) InsertMany(ctx context.Context, items []models.MenuItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return 0, ErrReadOnly
	}

	n, err := c.insertLocked(items)
	c.syncIfEnabled()
	return n, err
}

// Query filters the cached menu in memory with the same matcher the
// SQLite store's LIKE clause agrees with.
func (c *Client) Query(ctx context.Context, f models.Filter) ([]models.MenuItem, error) {
	items, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return models.FilterItems(items, f), nil
}

// CacheState reports the item count and the last population stamp.
func (c *Client) CacheState(ctx context.Context) (storage.CacheState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys, err := c.keysWithPrefix(MenuPrefix)
	if err != nil {
		return storage.CacheState{}, fmt.Errorf("count menu: %w", err)
	}
	var state storage.CacheState
	for _, key := range keys {
		if _, ok := parseItemKey(string(key)); ok {
			state.Count++
		}
	}

	at, err := c.get(metaPopulatedAt)
	if err != nil {
		return storage.CacheState{}, err
	}
	if at != nil {
		state.PopulatedAt, _ = time.Parse(time.RFC3339Nano, string(at))
	}

	gen, err := c.get(metaGeneration)
	if err != nil {
		return storage.CacheState{}, err
	}
	state.Generation = string(gen)
	return state, nil
}

// MarkPopulated records when and by which generation the cache was filled.
func (c *Client) MarkPopulated(ctx context.Context, generation string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}
	if err := c.setMetaLocked(generation, at); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// ReplaceAll deletes every menu key and writes items in their place.
// The KV store has no multi-key transaction, so a failure part way leaves
// the old stamp in place and the cache reads as stale.
func (c *Client) ReplaceAll(ctx context.Context, items []models.MenuItem, generation string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return ErrReadOnly
	}

	keys, err := c.keysWithPrefix(MenuPrefix)
	if err != nil {
		return fmt.Errorf("list menu keys: %w", err)
	}
	for _, key := range keys {
		if err := c.kv.Delete(key); err != nil {
			return fmt.Errorf("clear menu: %w", err)
		}
	}

	if _, err := c.insertLocked(items); err != nil {
		return err
	}
	if err := c.setMetaLocked(generation, at); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

func (c *Client) insertLocked(items []models.MenuItem) (int, error) {
	next, err := c.nextIDLocked()
	if err != nil {
		return 0, err
	}

	for i, m := range items {
		m.ID = next + int64(i)
		data, err := json.Marshal(m)
		if err != nil {
			return i, fmt.Errorf("marshal menu item %d (%q): %w", i, m.Title, err)
		}
		if err := c.kv.Set([]byte(itemKey(m.ID)), data); err != nil {
			return i, fmt.Errorf("insert menu item %d (%q): %w", i, m.Title, err)
		}
		if err := c.kv.Set([]byte(metaSeq), []byte(strconv.FormatInt(m.ID, 10))); err != nil {
			return i + 1, fmt.Errorf("advance sequence: %w", err)
		}
	}
	return len(items), nil
}

// nextIDLocked returns the id after the highest one ever assigned.
// Ids are never reused, matching AUTOINCREMENT in the SQL stores.
func (c *Client) nextIDLocked() (int64, error) {
	val, err := c.get(metaSeq)
	if err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	if val == nil {
		return 1, nil
	}
	last, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse sequence %q: %w", val, err)
	}
	return last + 1, nil
}

func (c *Client) setMetaLocked(generation string, at time.Time) error {
	if err := c.kv.Set([]byte(metaPopulatedAt), []byte(at.UTC().Format(time.RFC3339Nano))); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	if err := c.kv.Set([]byte(metaGeneration), []byte(generation)); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	return nil
}

func sortByID(items []models.MenuItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
}
