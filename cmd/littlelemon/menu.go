// ABOUTME: CLI commands for listing and searching the cached menu.
// ABOUTME: Bootstraps the cache on first use, then reads it locally.
package main

import (
	"strings"

	"github.com/harperreed/littlelemon/internal/models"
	"github.com/spf13/cobra"
)

var (
	menuShowImages bool
	searchCats     []string
)

var menuCmd = &cobra.Command{
	Use:     "menu",
	Aliases: []string{"ls", "list"},
	Short:   "List the whole menu",
	Long: `List every dish on the menu, ordered as first downloaded.

The first run downloads the menu and saves it; later runs read the saved
copy. If the download fails and nothing is saved yet, a notice is shown
and the list is empty.

EXAMPLES:

  littlelemon menu
  littlelemon menu --images     # Include photo URLs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		res, notice, err := bootstrapMenu(ctx)
		if err != nil {
			return err
		}
		printNotice(out, notice)
		if res == nil {
			printItems(out, nil, false)
			return nil
		}

		printItems(out, res.Items, menuShowImages)
		warnNotSaved(out, drainPersisted(ctx))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:     "search [text]",
	Aliases: []string{"find", "f"},
	Short:   "Filter the menu by title and category",
	Long: `Filter the menu by dish title and category.

Text matches anywhere in the title. A-Z are matched regardless of case,
other letters exactly. % and _ are literal characters. Categories are
starters, mains, desserts, drinks; repeat -c to combine them. With no
text and no categories the whole menu is shown.

EXAMPLES:

  littlelemon search greek
  littlelemon search -c desserts
  littlelemon search salad -c starters -c mains`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		res, notice, err := bootstrapMenu(ctx)
		if err != nil {
			return err
		}
		printNotice(out, notice)
		if res == nil {
			printItems(out, nil, false)
			return nil
		}

		f := models.Filter{}
		if len(args) == 1 {
			f.Text = args[0]
		}
		for _, c := range searchCats {
			f.Categories = append(f.Categories, strings.ToLower(strings.TrimSpace(c)))
		}

		found, err := svc.Filter(ctx, f)
		if err != nil {
			return err
		}
		printItems(out, found.Items, menuShowImages)
		return nil
	},
}

func init() {
	menuCmd.Flags().BoolVar(&menuShowImages, "images", false, "show image URLs")
	searchCmd.Flags().StringArrayVarP(&searchCats, "category", "c", nil, "category to include (repeatable)")
	searchCmd.Flags().BoolVar(&menuShowImages, "images", false, "show image URLs")

	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(searchCmd)
}
