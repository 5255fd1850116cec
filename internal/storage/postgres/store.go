// ABOUTME: Postgres implementation of the menu cache repository.
// ABOUTME: Uses a pgx connection pool and matches SQLite's ASCII-only case folding.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/harperreed/littlelemon/internal/storage/postgres/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectMenu = `
		SELECT id, COALESCE(title, ''), COALESCE(description, ''), COALESCE(price, ''),
			COALESCE(imagefilename, ''), COALESCE(category, '')
		FROM menu`

	insertMenu = `
		INSERT INTO menu (title, description, price, imagefilename, category)
		VALUES ($1, $2, $3, $4, $5)`

	upsertMeta = `
		INSERT INTO cache_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	// foldASCII lowers A-Z only, the way SQLite's LIKE compares.
	foldASCII = `translate(%s, 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz')`

	insertStmtName = "littlelemon_insert_menu"
	migrationTable = "schema_migrations"
)

// Store is a menu cache backed by Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// Open connects to Postgres. The schema is not touched; callers run EnsureSchema.
func Open(ctx context.Context, connString string) (*Store, error) {
	if connString == "" {
		return nil, errors.New("postgres connection string is empty")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Backend names the storage engine.
func (s *Store) Backend() string {
	return "postgres"
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema applies pending embedded migrations, each in its own transaction.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
		name TEXT PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := s.applyMigration(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, file string) error {
	var found int
	err := s.pool.QueryRow(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = $1", file).Scan(&found)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check migration %s: %w", file, err)
	}

	content, err := fs.ReadFile(migrations.FS, file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", file, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, storage.UpMigration(string(content))); err != nil {
		return fmt.Errorf("exec migration %s: %w", file, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO "+migrationTable+" (name, applied_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING",
		file, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", file, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// SchemaVersion returns the number of applied migrations.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+migrationTable).Scan(&n); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return n, nil
}

// ReadAll returns every cached menu item ordered by id.
func (s *Store) ReadAll(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.pool.Query(ctx, selectMenu+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}
	return collectMenuItems(rows)
}

// InsertMany appends items through one prepared statement on one pooled
// connection. The batch is not atomic; rows before a failure stay.
func (s *Store) InsertMany(ctx context.Context, items []models.MenuItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Conn().Prepare(ctx, insertStmtName, insertMenu); err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = conn.Conn().Deallocate(context.WithoutCancel(ctx), insertStmtName) }()

	for i, m := range items {
		if _, err := conn.Exec(ctx, insertStmtName, m.Title, m.Description, m.Price, m.ImageFileName, m.Category); err != nil {
			return i, fmt.Errorf("insert menu item %d (%q): %w", i, m.Title, err)
		}
	}
	return len(items), nil
}

// Query filters by title substring and category membership.
func (s *Store) Query(ctx context.Context, f models.Filter) ([]models.MenuItem, error) {
	query, args := buildMenuQuery(f)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	return collectMenuItems(rows)
}

// CacheState reports the row count and the last population stamp.
func (s *Store) CacheState(ctx context.Context) (storage.CacheState, error) {
	var state storage.CacheState
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM menu").Scan(&state.Count); err != nil {
		return storage.CacheState{}, fmt.Errorf("count menu: %w", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT key, value FROM cache_meta WHERE key = ANY($1)",
		[]string{storage.MetaPopulatedAt, storage.MetaGeneration})
	if err != nil {
		return storage.CacheState{}, fmt.Errorf("read cache meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return storage.CacheState{}, fmt.Errorf("scan cache meta: %w", err)
		}
		switch key {
		case storage.MetaPopulatedAt:
			state.PopulatedAt, _ = time.Parse(time.RFC3339Nano, value)
		case storage.MetaGeneration:
			state.Generation = value
		}
	}
	return state, rows.Err()
}

// MarkPopulated records when and by which generation the cache was filled.
func (s *Store) MarkPopulated(ctx context.Context, generation string, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mark populated: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := setMeta(ctx, tx, generation, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReplaceAll swaps the whole menu in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, items []models.MenuItem, generation string, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM menu"); err != nil {
		return fmt.Errorf("clear menu: %w", err)
	}

	batch := &pgx.Batch{}
	for _, m := range items {
		batch.Queue(insertMenu, m.Title, m.Description, m.Price, m.ImageFileName, m.Category)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert menu: %w", err)
		}
	}

	if err := setMeta(ctx, tx, generation, at); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func setMeta(ctx context.Context, tx pgx.Tx, generation string, at time.Time) error {
	if _, err := tx.Exec(ctx, upsertMeta, storage.MetaPopulatedAt, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	if _, err := tx.Exec(ctx, upsertMeta, storage.MetaGeneration, generation); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	return nil
}

func buildMenuQuery(f models.Filter) (string, []any) {
	var clauses []string
	var args []any

	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		clauses = append(clauses, "category = ANY($"+strconv.Itoa(len(args))+")")
	}

	if f.Text != "" {
		args = append(args, storage.ContainsPattern(f.Text))
		n := strconv.Itoa(len(args))
		clauses = append(clauses,
			fmt.Sprintf(foldASCII, "title")+" LIKE "+fmt.Sprintf(foldASCII, "$"+n)+` ESCAPE '\'`)
	}

	query := selectMenu
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query + " ORDER BY id", args
}

func collectMenuItems(rows pgx.Rows) ([]models.MenuItem, error) {
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.MenuItem, error) {
		var m models.MenuItem
		err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Price, &m.ImageFileName, &m.Category)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan menu item: %w", err)
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	return items, nil
}
