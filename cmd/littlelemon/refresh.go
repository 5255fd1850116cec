// ABOUTME: CLI commands for forcing a menu download and showing cache status.
// ABOUTME: refresh replaces the saved menu; status reports what is saved.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download the menu again",
	Long: `Download the menu and replace the saved copy.

The saved copy is only replaced when the download succeeds; on failure
the old menu is kept.

EXAMPLES:

  littlelemon refresh`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Saved %d menu items", res.Count))
		fmt.Fprintf(cmd.OutOrStdout(), "  Generation: %s\n", res.Generation)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the local cache holds",
	Long: `Show the storage backend, schema version, item count, and when the
menu was last downloaded. Does not touch the network.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		version, err := repo.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		state, err := repo.CacheState(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Backend:   %s\n", repo.Backend())
		fmt.Fprintf(out, "Schema:    v%d\n", version)
		fmt.Fprintf(out, "Menu URL:  %s\n", fetcher.MenuURL())
		fmt.Fprintf(out, "Items:     %d\n", state.Count)
		if state.IsEmpty() {
			fmt.Fprintln(out, color.YellowString("Cache is empty; the next command downloads the menu."))
			return nil
		}
		if state.PopulatedAt.IsZero() {
			fmt.Fprintln(out, "Saved:     unknown")
		} else {
			fmt.Fprintf(out, "Saved:     %s (%s ago)\n",
				state.PopulatedAt.Local().Format("2006-01-02 15:04"),
				time.Since(state.PopulatedAt).Round(time.Minute))
		}
		if state.Generation != "" {
			fmt.Fprintf(out, "Generation: %s\n", state.Generation)
		}
		if svc.Policy().IsStale(state, time.Now()) {
			fmt.Fprintln(out, color.YellowString("Stale: the next command downloads the menu again."))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
}
