// ABOUTME: CLI commands for the long-running servers: HTTP API, MCP, and the browser.
// ABOUTME: Each bootstraps the cache once, then serves until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/littlelemon/internal/api"
	"github.com/harperreed/littlelemon/internal/mcp"
	"github.com/harperreed/littlelemon/internal/tui"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the menu over HTTP",
	Long: `Serve the cached menu as a JSON API.

ENDPOINTS:

  GET  /healthz                      Liveness check
  GET  /menu?q=greek&category=mains  Filtered menu (category repeatable)
  GET  /categories                   Categories with item counts
  GET  /images/{file}                Redirect to the dish photo
  POST /refresh                      Download the menu again

EXAMPLES:

  littlelemon serve
  littlelemon serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withSignals(cmd.Context())
		defer cancel()

		announceBootstrap(ctx)

		addr := cfg.GetHTTPAddr()
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(svc, fetcher.ImageURL, logger).NewRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("stopped")
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "littlelemon": {
        "command": "littlelemon",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  list_menu      Every dish on the menu
  search_menu    Filter by title text and categories
  refresh_menu   Download the menu again

AVAILABLE RESOURCES:

  menu://all          Menu grouped by category
  menu://categories   Categories with item counts`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withSignals(cmd.Context())
		defer cancel()

		announceBootstrap(ctx)

		server, err := mcp.NewServer(svc, fetcher.ImageURL, version)
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	},
}

var browseCmd = &cobra.Command{
	Use:     "browse",
	Aliases: []string{"b"},
	Short:   "Browse the menu interactively",
	Long: `Open a full-screen menu browser.

KEYS:

  type        Filter titles (applied after a short pause)
  alt+1-4     Toggle starters, mains, desserts, drinks
  tab         Switch focus between search and categories;
              with categories focused, 1-4 toggle them
  up/down     Move the cursor
  esc/ctrl+c  Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		res, notice, err := bootstrapMenu(ctx)
		if err != nil {
			return err
		}
		if res == nil {
			return tui.Run(ctx, svc, nil, notice)
		}
		return tui.Run(ctx, svc, res.Items, notice)
	},
}

// announceBootstrap loads the cache before serving and logs a failed download.
// Servers start either way; requests report the error.
func announceBootstrap(ctx context.Context) {
	res, notice, err := bootstrapMenu(ctx)
	switch {
	case err != nil:
		logger.Error("bootstrap failed", "err", err)
	case notice != "":
		logger.Warn(notice)
	default:
		logger.Info("menu ready", "items", len(res.Items), "source", res.Source)
	}
}

func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080 or http_addr)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(browseCmd)
}
