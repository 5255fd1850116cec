// ABOUTME: Shared CLI helpers for bootstrapping and printing menu items.
// ABOUTME: Keeps the download-failure notice and list layout consistent across commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harperreed/littlelemon/internal/menu"
	"github.com/harperreed/littlelemon/internal/models"
	"github.com/harperreed/littlelemon/internal/remote"
	"github.com/mattn/go-runewidth"
)

// bootstrapMenu runs the service bootstrap. A failed download on an empty
// cache is not an error for the CLI: it returns a notice and no items.
func bootstrapMenu(ctx context.Context) (*menu.BootstrapResult, string, error) {
	res, err := svc.Bootstrap(ctx)
	if res != nil {
		pendingWrite = res.Persisted
	}
	if errors.Is(err, remote.ErrFetch) {
		return nil, "Unable to download menu items: " + err.Error(), nil
	}
	if err != nil {
		return nil, "", err
	}
	if res.FetchErr != nil {
		return res, "Showing saved menu; download failed: " + res.FetchErr.Error(), nil
	}
	return res, "", nil
}

// pendingWrite is the Persisted channel of the last bootstrap, until drained.
var pendingWrite <-chan error

// drainPersisted blocks until the bootstrap write ends. The store must not
// be closed before then. It returns the write's error once.
func drainPersisted(ctx context.Context) error {
	if pendingWrite == nil {
		return nil
	}
	select {
	case err := <-pendingWrite:
		pendingWrite = nil
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func warnNotSaved(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintln(w, color.YellowString("⚠ Menu not saved: %v", err))
	}
}

func printItems(w io.Writer, items []models.MenuItem, showImages bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No menu items.")
		return
	}

	faint := color.New(color.Faint)
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	for _, m := range items {
		fmt.Fprintf(w, "%s %s %s\n",
			bold.Sprint(padRight(m.Title, 24)),
			green.Sprint(padRight(m.DisplayPrice(), 8)),
			faint.Sprint(models.CategoryLabel(m.Category)))
		if m.Description != "" {
			fmt.Fprintf(w, "  %s\n", faint.Sprint(truncate(m.Description, 72)))
		}
		if showImages {
			if u := fetcher.ImageURL(m.ImageFileName); u != "" {
				fmt.Fprintf(w, "  %s\n", faint.Sprint(u))
			}
		}
	}
}

func printNotice(w io.Writer, notice string) {
	if notice != "" {
		fmt.Fprintln(w, color.YellowString("%s", notice))
	}
}

// truncate and padRight work in terminal cells, so multibyte text is never
// split mid-rune and accented titles stay aligned.
func truncate(s string, maxLen int) string {
	return runewidth.Truncate(s, maxLen, "...")
}

func padRight(s string, length int) string {
	return runewidth.FillRight(s, length)
}
