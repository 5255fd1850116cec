// ABOUTME: CLI commands for exporting and importing the cached menu.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export the cached menu",
	Long: `Export the cached menu in various formats. Does not download anything.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export grouped by category
  markdown   Markdown tables, one per category

OPTIONS:

  --output, -o   Write to file instead of stdout

EXAMPLES:

  littlelemon export json                  # Export as JSON
  littlelemon export json -o menu.json     # Save to file
  littlelemon export markdown              # Printable menu`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format := args[0]

		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}

		var data []byte
		var err error

		switch format {
		case "json":
			data, err = storage.ExportJSON(ctx, repo)
		case "yaml":
			data, err = storage.ExportYAML(ctx, repo)
		case "markdown", "md":
			var md string
			md, err = storage.ExportMarkdown(ctx, repo)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", format)
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Exported to %s", exportOutput))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}

		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a menu from a JSON export",
	Long: `Load the menu from a JSON file written by 'littlelemon export json'.

The cache must be empty. Item ids are reassigned; the saved download
time and generation are kept.

EXAMPLES:

  littlelemon import menu.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		n, err := storage.ImportJSON(ctx, repo, data)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Imported %d menu items from %s", n, filename))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
