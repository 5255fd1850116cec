// ABOUTME: Tests for menu table operations on SQLite.
// ABOUTME: Covers round-trips, batch insert semantics, filtering, and the escaping contract.
package storage

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
)

func TestReadAllEmpty(t *testing.T) {
	db := setupTestDB(t)

	items, err := db.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if items == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(items) != 0 {
		t.Errorf("expected 0 items, got %d", len(items))
	}
}

func TestInsertManyRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	want := sampleMenu()
	seed(t, db, want)

	got, err := db.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}

	seen := make(map[int64]bool)
	for i := range got {
		if got[i].ID == 0 {
			t.Errorf("item %d has no store-assigned id", i)
		}
		if seen[got[i].ID] {
			t.Errorf("duplicate id %d", got[i].ID)
		}
		seen[got[i].ID] = true

		g := got[i]
		g.ID = 0
		if !reflect.DeepEqual(g, want[i]) {
			t.Errorf("item %d = %+v, want %+v", i, g, want[i])
		}
	}
}

func TestInsertManyEmptyIsNoop(t *testing.T) {
	db := setupTestDB(t)

	n, err := db.InsertMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertMany(nil) failed: %v", err)
	}
	if n != 0 {
		t.Errorf("InsertMany(nil) = %d, want 0", n)
	}

	n, err = db.InsertMany(context.Background(), []models.MenuItem{})
	if err != nil || n != 0 {
		t.Errorf("InsertMany([]) = %d, %v; want 0, nil", n, err)
	}
}

func TestInsertManyPartialFailureKeepsEarlierRows(t *testing.T) {
	db := setupTestDB(t)
	items := sampleMenu()[:3]

	// A trigger makes the second insert fail.
	_, err := db.db.Exec(`
		CREATE TRIGGER reject_bruschetta BEFORE INSERT ON menu
		WHEN NEW.title = 'Bruschetta'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	n, err := db.InsertMany(context.Background(), items)
	if err == nil {
		t.Fatal("expected error from InsertMany")
	}
	if n != 1 {
		t.Errorf("InsertMany reported %d rows, want 1", n)
	}

	got, err := db.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Greek Salad" {
		t.Errorf("expected only Greek Salad to persist, got %v", titles(got))
	}
}

func TestQuery(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, sampleMenu())

	tests := []struct {
		name   string
		filter models.Filter
		want   []string
	}{
		{
			name:   "empty filter returns everything",
			filter: models.Filter{},
			want:   []string{"Greek Salad", "Bruschetta", "Grilled Fish", "Lemon Pasta", "Lemon Dessert", "Mango Sorbet", "Lemonade"},
		},
		{
			name:   "substring lower case",
			filter: models.Filter{Text: "mango"},
			want:   []string{"Mango Sorbet"},
		},
		{
			name:   "substring upper case",
			filter: models.Filter{Text: "MANGO"},
			want:   []string{"Mango Sorbet"},
		},
		{
			name:   "substring in the middle",
			filter: models.Filter{Text: "salad"},
			want:   []string{"Greek Salad"},
		},
		{
			name:   "category set",
			filter: models.Filter{Categories: []string{"desserts", "drinks"}},
			want:   []string{"Lemon Dessert", "Mango Sorbet", "Lemonade"},
		},
		{
			name:   "single category",
			filter: models.Filter{Categories: []string{"mains"}},
			want:   []string{"Grilled Fish", "Lemon Pasta"},
		},
		{
			name:   "text and category",
			filter: models.Filter{Text: "lemon", Categories: []string{"mains"}},
			want:   []string{"Lemon Pasta"},
		},
		{
			name:   "no match",
			filter: models.Filter{Text: "pizza"},
			want:   []string{},
		},
		{
			name:   "unknown category",
			filter: models.Filter{Categories: []string{"specials"}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Query(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if !reflect.DeepEqual(titles(got), tt.want) {
				t.Errorf("Query(%+v) = %v, want %v", tt.filter, titles(got), tt.want)
			}
		})
	}
}

func TestQueryOrderStable(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, sampleMenu())

	first, err := db.Query(context.Background(), models.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := db.Query(context.Background(), models.Filter{})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Query order changed between calls: %v vs %v", titles(first), titles(again))
		}
	}
}

func TestQuerySpecialCharactersAreLiteral(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, []models.MenuItem{
		{Title: "Greek Salad", Category: "starters"},
		{Title: "100% Orange Juice", Category: "drinks"},
		{Title: "Chef_Special", Category: "mains"},
		{Title: "Grandma's Pie", Category: "desserts"},
		{Title: `The "Big" Burger`, Category: "mains"},
		{Title: `Back\slash`, Category: "mains"},
	})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lone percent", "%", []string{"100% Orange Juice"}},
		{"percent inside", "0% o", []string{"100% Orange Juice"}},
		{"lone underscore", "_", []string{"Chef_Special"}},
		{"underscore does not match any char", "Chef Special", []string{}},
		{"single quote", "'", []string{"Grandma's Pie"}},
		{"quote injection attempt", "' OR '1'='1", []string{}},
		{"double quote", `"Big"`, []string{`The "Big" Burger`}},
		{"backslash", `\`, []string{`Back\slash`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Query(context.Background(), models.Filter{Text: tt.text})
			if err != nil {
				t.Fatalf("Query(%q) failed: %v", tt.text, err)
			}
			if !reflect.DeepEqual(titles(got), tt.want) {
				t.Errorf("Query(%q) = %v, want %v", tt.text, titles(got), tt.want)
			}
		})
	}

	// The table survives the injection attempt.
	all, err := db.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("expected 6 rows after quoted queries, got %d", len(all))
	}
}

func TestQueryNonASCIICaseSensitive(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, []models.MenuItem{{Title: "Île Flottante", Category: "desserts"}})

	got, err := db.Query(context.Background(), models.Filter{Text: "île"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected non-ASCII case difference not to match, got %v", titles(got))
	}

	got, err = db.Query(context.Background(), models.Filter{Text: "Île"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected exact non-ASCII match, got %v", titles(got))
	}
}

func TestQueryAgreesWithInMemoryMatcher(t *testing.T) {
	db := setupTestDB(t)
	items := sampleMenu()
	seed(t, db, items)

	stored, err := db.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	filters := []models.Filter{
		{Text: "LEMON"},
		{Text: "e", Categories: []string{"starters", "drinks"}},
		{Categories: []string{"mains"}},
		{Text: "%"},
	}
	for _, f := range filters {
		got, err := db.Query(context.Background(), f)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		want := models.FilterItems(stored, f)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("filter %+v: store %v, matcher %v", f, titles(got), titles(want))
		}
	}
}

func TestReplaceAll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seed(t, db, sampleMenu())

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	replacement := []models.MenuItem{{Title: "Soup of the Day", Category: "starters", Price: "4"}}
	if err := db.ReplaceAll(ctx, replacement, "gen-2", at); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	got, err := db.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !reflect.DeepEqual(titles(got), []string{"Soup of the Day"}) {
		t.Errorf("after ReplaceAll got %v", titles(got))
	}

	state, err := db.CacheState(ctx)
	if err != nil {
		t.Fatalf("CacheState failed: %v", err)
	}
	if state.Count != 1 || state.Generation != "gen-2" || !state.PopulatedAt.Equal(at) {
		t.Errorf("unexpected cache state: %+v", state)
	}
}

func TestReplaceAllRollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seed(t, db, sampleMenu())

	_, err := db.db.Exec(`
		CREATE TRIGGER reject_bad BEFORE INSERT ON menu
		WHEN NEW.title = 'Bad'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err = db.ReplaceAll(ctx, []models.MenuItem{{Title: "Good"}, {Title: "Bad"}}, "gen-x", time.Now())
	if err == nil {
		t.Fatal("expected ReplaceAll to fail")
	}

	got, err := db.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != len(sampleMenu()) {
		t.Errorf("expected original %d rows after rollback, got %d", len(sampleMenu()), len(got))
	}
}

func TestBuildMenuQueryUsesParameters(t *testing.T) {
	query, args := buildMenuQuery(models.Filter{Text: "a'b", Categories: []string{"x", "y"}})

	if want := "category IN (?, ?)"; !strings.Contains(query, want) {
		t.Errorf("query %q missing %q", query, want)
	}
	if strings.Contains(query, "a'b") {
		t.Errorf("query text leaked into SQL: %q", query)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
	if args[2] != "%a'b%" {
		t.Errorf("pattern arg = %v, want %%a'b%%", args[2])
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`c:\`, `c:\\`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		if got := EscapeLike(tt.in); got != tt.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
