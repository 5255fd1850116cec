// ABOUTME: CLI command for copying the cached menu between storage backends.
// ABOUTME: Moves data from sqlite, postgres, or charm into an empty destination.
package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateFrom string
	migrateTo   string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the menu between storage backends",
	Long: `Copy the cached menu from one storage backend to another.

The destination must be empty. Item ids are reassigned by the destination
and the download time and generation are carried over.

BACKENDS:

  sqlite     ~/.local/share/littlelemon/littlelemon.db (default)
  postgres   postgres_url / LITTLELEMON_POSTGRES_URL
  charm      Charm KV, synced through charm_host

EXAMPLES:

  littlelemon migrate --from sqlite --to postgres
  littlelemon migrate --from charm --to sqlite`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if migrateFrom == migrateTo {
			return fmt.Errorf("source and destination are both %s", migrateFrom)
		}

		src, err := openFor(ctx, migrateFrom)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		dst, err := openFor(ctx, migrateTo)
		if err != nil {
			return err
		}
		defer func() { _ = dst.Close() }()

		if err := src.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("prepare source: %w", err)
		}
		summary, err := storage.MigrateData(ctx, src, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Copied %d menu items from %s to %s", summary.Items, src.Backend(), dst.Backend()))
		return nil
	},
}

// openFor returns the already open repo when backend is the configured one.
func openFor(ctx context.Context, backend string) (storage.Repository, error) {
	if backend == cfg.GetBackend() {
		return noClose{repo}, nil
	}
	r, err := cfg.OpenBackend(ctx, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", backend, err)
	}
	return r, nil
}

// noClose leaves closing the shared repo to teardown.
type noClose struct {
	storage.Repository
}

func (noClose) Close() error { return nil }

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "sqlite", "source backend: sqlite, postgres, charm")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "postgres", "destination backend: sqlite, postgres, charm")
	rootCmd.AddCommand(migrateCmd)
}
