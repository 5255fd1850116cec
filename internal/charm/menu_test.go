// ABOUTME: Unit tests for Charm-based menu storage helpers.
// ABOUTME: Tests key layout and ordering without a live KV store.
package charm

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/harperreed/littlelemon/internal/models"
)

func TestItemKeyFormat(t *testing.T) {
	key := itemKey(42)

	if !strings.HasPrefix(key, "menu:") {
		t.Errorf("Expected key to start with 'menu:', got: %s", key)
	}
	if len(key) != len("menu:")+20 {
		t.Errorf("Expected zero-padded id, got: %s", key)
	}
}

func TestItemKeysSortByID(t *testing.T) {
	ids := []int64{10, 2, 100, 1}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(id)
	}
	sort.Strings(keys)

	want := []int64{1, 2, 10, 100}
	for i, key := range keys {
		id, ok := parseItemKey(key)
		if !ok {
			t.Fatalf("parseItemKey(%q) failed", key)
		}
		if id != want[i] {
			t.Errorf("position %d: got id %d, want %d", i, id, want[i])
		}
	}
}

func TestParseItemKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID int64
		wantOK bool
	}{
		{itemKey(7), 7, true},
		{"menu:abc", 0, false},
		{"meta:seq", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseItemKey(tt.key)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("parseItemKey(%q) = (%d, %v), want (%d, %v)", tt.key, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestMetaKeysDoNotCollideWithMenu(t *testing.T) {
	for _, key := range []string{metaSchema, metaSeq, metaPopulatedAt, metaGeneration} {
		if strings.HasPrefix(key, MenuPrefix) {
			t.Errorf("meta key %q shares the menu prefix", key)
		}
	}
}

func TestSortByID(t *testing.T) {
	items := []models.MenuItem{{ID: 3, Title: "c"}, {ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	sortByID(items)

	for i, want := range []string{"a", "b", "c"} {
		if items[i].Title != want {
			t.Errorf("position %d: got %q, want %q", i, items[i].Title, want)
		}
	}
}

func TestDecodeItems(t *testing.T) {
	good, err := json.Marshal(models.MenuItem{ID: 1, Title: "Greek Salad", Category: "starters"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	items, err := decodeItems([]entry{{key: []byte(itemKey(1)), value: good}})
	if err != nil {
		t.Fatalf("decodeItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Greek Salad" {
		t.Errorf("got %+v", items)
	}
}

func TestDecodeItemsCorruptValueFails(t *testing.T) {
	good, _ := json.Marshal(models.MenuItem{ID: 1, Title: "Greek Salad"})
	entries := []entry{
		{key: []byte(itemKey(1)), value: good},
		{key: []byte(itemKey(2)), value: []byte("{not json")},
	}

	items, err := decodeItems(entries)
	if err == nil {
		t.Fatalf("expected error, got %d items", len(items))
	}
	if !strings.Contains(err.Error(), itemKey(2)) {
		t.Errorf("error should name the corrupt key, got: %v", err)
	}
}
