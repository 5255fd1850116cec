// ABOUTME: Export and import functionality for the cached menu.
// ABOUTME: Supports JSON, YAML, and Markdown export formats for any Repository.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for the menu cache.
type ExportData struct {
	Version    string            `json:"version" yaml:"version"`
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Tool       string            `json:"tool" yaml:"tool"`
	Cache      CacheState        `json:"cache" yaml:"cache"`
	Menu       []models.MenuItem `json:"menu" yaml:"menu"`
}

// GetAllData retrieves all data for export.
func GetAllData(ctx context.Context, repo Repository) (*ExportData, error) {
	items, err := repo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}

	state, err := repo.CacheState(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cache state: %w", err)
	}

	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Tool:       "littlelemon",
		Cache:      state,
		Menu:       items,
	}, nil
}

// ExportJSON exports all data as JSON.
func ExportJSON(ctx context.Context, repo Repository) ([]byte, error) {
	data, err := GetAllData(ctx, repo)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports the menu grouped by category.
func ExportYAML(ctx context.Context, repo Repository) ([]byte, error) {
	data, err := GetAllData(ctx, repo)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string                       `yaml:"version"`
		ExportedAt string                       `yaml:"exported_at"`
		Tool       string                       `yaml:"tool"`
		Generation string                       `yaml:"generation,omitempty"`
		Menu       map[string][]models.MenuItem `yaml:"menu"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Generation: data.Cache.Generation,
		Menu:       make(map[string][]models.MenuItem),
	}

	for _, m := range data.Menu {
		yamlData.Menu[m.Category] = append(yamlData.Menu[m.Category], m)
	}

	return yaml.Marshal(yamlData)
}

// ExportMarkdown renders the menu as one table per category.
// Known categories come first in menu order, then any others alphabetically.
func ExportMarkdown(ctx context.Context, repo Repository) (string, error) {
	items, err := repo.ReadAll(ctx)
	if err != nil {
		return "", err
	}

	grouped := make(map[string][]models.MenuItem)
	for _, m := range items {
		grouped[m.Category] = append(grouped[m.Category], m)
	}

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Little Lemon Menu - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	for _, category := range categoryOrder(grouped) {
		sb.WriteString(fmt.Sprintf("## %s\n\n", models.CategoryLabel(category)))
		sb.WriteString("| Dish | Price | Description |\n")
		sb.WriteString("|------|-------|-------------|\n")
		for _, m := range grouped[category] {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				escapeCell(m.Title), m.DisplayPrice(), escapeCell(m.Description)))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// ImportJSON loads menu items from a JSON export into an empty repo.
// Ids from the file are ignored; the store assigns new ones.
func ImportJSON(ctx context.Context, repo Repository, data []byte) (int, error) {
	var exportData ExportData
	if err := json.Unmarshal(data, &exportData); err != nil {
		return 0, fmt.Errorf("unmarshal JSON: %w", err)
	}

	if err := requireEmpty(ctx, repo); err != nil {
		return 0, err
	}

	n, err := repo.InsertMany(ctx, exportData.Menu)
	if err != nil {
		return n, fmt.Errorf("import menu: %w", err)
	}

	at := exportData.Cache.PopulatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := repo.MarkPopulated(ctx, exportData.Cache.Generation, at); err != nil {
		return n, err
	}
	return n, nil
}

// ErrNotEmpty is returned when loading data into a store that already holds a menu.
var ErrNotEmpty = errors.New("menu store is not empty")

func requireEmpty(ctx context.Context, repo Repository) error {
	state, err := repo.CacheState(ctx)
	if err != nil {
		return err
	}
	if !state.IsEmpty() {
		return fmt.Errorf("%w: %d items", ErrNotEmpty, state.Count)
	}
	return nil
}

func categoryOrder(grouped map[string][]models.MenuItem) []string {
	var order []string
	for _, c := range models.AllCategories {
		if _, ok := grouped[string(c)]; ok {
			order = append(order, string(c))
		}
	}

	var extra []string
	for c := range grouped {
		if !models.IsKnownCategory(c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
