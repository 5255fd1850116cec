// ABOUTME: Charm KV client wrapper for menu cache storage.
// ABOUTME: Provides lazy initialization, read-only detection, and cloud sync.
package charm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

const (
	// DBName is the Charm KV database the menu lives in.
	DBName           = "littlelemon"
	DefaultCharmHost = "charm.2389.dev"

	MenuPrefix = "menu:"
	MetaPrefix = "meta:"
)

// ErrReadOnly is returned by writes while another process holds the KV lock.
var ErrReadOnly = errors.New("cannot write: database is locked by another process (MCP server?)")

// Client wraps a Charm KV store holding the menu cache.
type Client struct {
	kv       *kv.KV
	autoSync bool
	mu       sync.RWMutex
}

// Options configures how the KV store is opened.
type Options struct {
	Host     string
	AutoSync bool
}

// Open opens the menu KV store, falling back to read-only when another
// process holds the lock. Remote data is pulled once on open.
func Open(opts Options) (*Client, error) {
	host := opts.Host
	if host == "" {
		host = DefaultCharmHost
	}
	// Set server before opening KV
	if err := os.Setenv("CHARM_HOST", host); err != nil {
		return nil, err
	}

	db, err := kv.OpenWithDefaultsFallback(DBName)
	if err != nil {
		return nil, fmt.Errorf("open charm kv: %w", err)
	}

	c := &Client{kv: db, autoSync: opts.AutoSync}

	// Pull remote data on startup (skip in read-only mode)
	if !db.IsReadOnly() {
		_ = db.Sync()
	}
	return c, nil
}

// Close closes the KV database connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (c *Client) IsReadOnly() bool {
	return c.kv.IsReadOnly()
}

// Sync synchronizes local state with Charm Cloud.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

// syncIfEnabled calls Sync if autoSync is enabled. Callers hold the lock.
func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		_ = c.kv.Sync()
	}
}

// SetAutoSync enables or disables automatic sync after writes.
func (c *Client) SetAutoSync(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSync = enabled
}

// ID returns the Charm user ID for the current account.
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

// Reset wipes local data and rebuilds from Charm Cloud.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// get returns the value for key, or nil when the key is absent.
// Callers hold at least the read lock.
func (c *Client) get(key string) ([]byte, error) {
	val, err := c.kv.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return val, err
}

// keysWithPrefix lists keys starting with prefix. Callers hold at least the read lock.
func (c *Client) keysWithPrefix(prefix string) ([][]byte, error) {
	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}

	prefixBytes := []byte(prefix)
	var out [][]byte
	for _, key := range keys {
		if bytes.HasPrefix(key, prefixBytes) {
			out = append(out, key)
		}
	}
	return out, nil
}

// entry is one stored key and its value.
type entry struct {
	key   []byte
	value []byte
}

// listByPrefix returns all entries with keys matching the given prefix.
func (c *Client) listByPrefix(prefix string) ([]entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys, err := c.keysWithPrefix(prefix)
	if err != nil {
		return nil, err
	}

	results := make([]entry, 0, len(keys))
	for _, key := range keys {
		val, err := c.kv.Get(key)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		results = append(results, entry{key: key, value: val})
	}
	return results, nil
}

// unmarshalJSON is a helper to unmarshal JSON data.
func unmarshalJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
