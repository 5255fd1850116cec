// ABOUTME: Menu table operations for SQLite storage.
// ABOUTME: Implements read, batch insert, filtered query, and full replacement.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
)

const selectMenu = `
	SELECT id, COALESCE(title, ''), COALESCE(description, ''), COALESCE(price, ''),
		COALESCE(imageFileName, ''), COALESCE(category, '')
	FROM menu`

const insertMenu = `
	INSERT INTO menu (title, description, price, imageFileName, category)
	VALUES (?, ?, ?, ?, ?)`

// ReadAll returns every cached menu item ordered by id.
func (d *DB) ReadAll(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := d.db.QueryContext(ctx, selectMenu+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}
	defer rows.Close()

	return scanMenuItems(rows)
}

// InsertMany appends items through a single prepared statement.
// The batch is not atomic: on failure it returns how many rows were written
// before the failing item, and those rows stay.
func (d *DB) InsertMany(ctx context.Context, items []models.MenuItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	stmt, err := d.db.PrepareContext(ctx, insertMenu)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	return execInserts(ctx, stmt, items)
}

// Query returns items whose title contains f.Text (literal, ASCII
// case-insensitive) and whose category is one of f.Categories.
func (d *DB) Query(ctx context.Context, f models.Filter) ([]models.MenuItem, error) {
	query, args := buildMenuQuery(f)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()

	return scanMenuItems(rows)
}

// ReplaceAll swaps the whole menu for items in one transaction and stamps the cache metadata.
func (d *DB) ReplaceAll(ctx context.Context, items []models.MenuItem, generation string, at time.Time) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM menu"); err != nil {
		return fmt.Errorf("clear menu: %w", err)
	}

	if len(items) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertMenu)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		_, err = execInserts(ctx, stmt, items)
		_ = stmt.Close()
		if err != nil {
			return err
		}
	}

	if err := setMeta(ctx, tx, generation, at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func execInserts(ctx context.Context, stmt *sql.Stmt, items []models.MenuItem) (int, error) {
	for i, m := range items {
		if _, err := stmt.ExecContext(ctx, m.Title, m.Description, m.Price, m.ImageFileName, m.Category); err != nil {
			return i, fmt.Errorf("insert menu item %d (%q): %w", i, m.Title, err)
		}
	}
	return len(items), nil
}

func buildMenuQuery(f models.Filter) (string, []any) {
	var clauses []string
	var args []any

	if len(f.Categories) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Categories)), ", ")
		clauses = append(clauses, "category IN ("+placeholders+")")
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}

	if f.Text != "" {
		clauses = append(clauses, `title LIKE ? ESCAPE '\'`)
		args = append(args, ContainsPattern(f.Text))
	}

	query := selectMenu
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query + " ORDER BY id", args
}

// scanMenuItems scans multiple rows into a slice of MenuItems.
func scanMenuItems(rows *sql.Rows) ([]models.MenuItem, error) {
	items := []models.MenuItem{}

	for rows.Next() {
		var m models.MenuItem
		err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Price, &m.ImageFileName, &m.Category)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, m)
	}

	return items, rows.Err()
}
