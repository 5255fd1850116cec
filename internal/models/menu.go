// ABOUTME: MenuItem model and Category set for the cached restaurant menu.
// ABOUTME: Also holds the Filter type and the matcher shared by non-SQL backends.
package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the menu section a dish belongs to.
// Storage keeps it as untyped text; the constants are the set the UI knows.
type Category string

const (
	CategoryStarters Category = "starters"
	CategoryMains    Category = "mains"
	CategoryDesserts Category = "desserts"
	CategoryDrinks   Category = "drinks"
)

// AllCategories returns the known categories in display order.
var AllCategories = []Category{
	CategoryStarters, CategoryMains, CategoryDesserts, CategoryDrinks,
}

// IsKnownCategory checks if a string is one of the known categories.
func IsKnownCategory(s string) bool {
	for _, c := range AllCategories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// CategoryLabel returns the capitalised display label for a category.
func CategoryLabel(c string) string {
	// Casers keep state between calls, so one per call.
	return cases.Title(language.English).String(c)
}

// MenuItem is one dish in the cached menu.
type MenuItem struct {
	ID            int64  `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Description   string `json:"description" yaml:"description"`
	Price         string `json:"price" yaml:"price"`
	ImageFileName string `json:"imageFileName" yaml:"image_file_name"`
	Category      string `json:"category" yaml:"category"`
}

// DisplayPrice renders the price the way the menu list shows it.
func (m MenuItem) DisplayPrice() string {
	return "$" + m.Price
}

// Filter selects menu items by title substring and category membership.
// An empty Text matches every title; empty Categories matches every category.
type Filter struct {
	Text       string   `json:"text,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// IsEmpty reports whether the filter selects every row.
func (f Filter) IsEmpty() bool {
	return f.Text == "" && len(f.Categories) == 0
}

// Matches applies the filter to a single item in memory.
// Title matching follows ContainsFoldASCII so results agree with the SQLite store.
func (f Filter) Matches(m MenuItem) bool {
	if f.Text != "" && !ContainsFoldASCII(m.Title, f.Text) {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if m.Category == c {
			return true
		}
	}
	return false
}

// ContainsFoldASCII reports whether substr is within s, ignoring case for
// ASCII letters only. Other characters must match exactly, which is how
// SQLite's built-in LIKE behaves.
func ContainsFoldASCII(s, substr string) bool {
	return strings.Contains(lowerASCII(s), lowerASCII(substr))
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// FilterItems returns the items matching f, preserving order.
func FilterItems(items []MenuItem, f Filter) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, m := range items {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}
