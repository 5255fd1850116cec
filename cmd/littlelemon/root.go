// ABOUTME: Root Cobra command for the littlelemon CLI.
// ABOUTME: Builds config, logger, tracing, storage, and the menu service in PersistentPre/PostRunE.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harperreed/littlelemon/internal/config"
	"github.com/harperreed/littlelemon/internal/logging"
	"github.com/harperreed/littlelemon/internal/menu"
	"github.com/harperreed/littlelemon/internal/remote"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/harperreed/littlelemon/internal/telemetry"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg         *config.Config
	logger      *log.Logger
	repo        storage.Repository
	fetcher     *remote.Client
	svc         *menu.Service
	stopTracing func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "littlelemon",
	Short: "Little Lemon menu, cached for offline browsing",
	Long: `Little Lemon keeps a local copy of the restaurant menu so you can browse
and filter it offline.

HOW IT WORKS:

  The first run downloads the menu and stores it locally. Every later run
  reads the local copy; the network is not touched again unless you run
  'littlelemon refresh' or set max_age in the config.

QUICK START:

  $ littlelemon menu                      # List the whole menu
  $ littlelemon search greek              # Dishes with "greek" in the title
  $ littlelemon search -c mains -c drinks # Only mains and drinks
  $ littlelemon browse                    # Interactive browser
  $ littlelemon refresh                   # Download the menu again

SEARCH RULES:

  Text matches anywhere in the dish title. A-Z match regardless of case;
  other letters must match exactly. % and _ are ordinary characters.

SERVERS:

  $ littlelemon serve --addr :8080        # HTTP JSON API
  $ littlelemon mcp                       # MCP server on stdio

CONFIGURATION:

  ~/.config/littlelemon/config.json, a .env file, and LITTLELEMON_*
  environment variables (later wins). Backends: sqlite (default),
  postgres, charm.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for commands that don't need it
		if !needsService(cmd) {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func needsService(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion", "sync", "install-skill", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func setup(ctx context.Context) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(config.ExpandPath(configPath))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.GetLogLevel()
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	logger, err = logging.New(os.Stderr, level, format)
	if err != nil {
		return err
	}

	stopTracing, err = telemetry.Setup(ctx, "littlelemon", version, cfg.GetOTELEndpoint())
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}

	timeout, err := cfg.GetFetchTimeout()
	if err != nil {
		return err
	}
	maxAge, err := cfg.GetMaxAge()
	if err != nil {
		return err
	}

	repo, err = cfg.OpenStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.GetBackend(), err)
	}

	fetcher = remote.New(
		remote.WithMenuURL(cfg.GetMenuURL()),
		remote.WithImageBaseURL(cfg.GetImageBaseURL()),
		remote.WithTimeout(timeout),
		remote.WithUserAgent("littlelemon/"+version),
	)
	svc = menu.NewService(repo, fetcher,
		menu.WithLogger(logger),
		menu.WithPolicy(menu.Policy{MaxAge: maxAge}),
	)
	logger.Debug("ready", "backend", repo.Backend(), "session", svc.SessionID(), "max_age", maxAge)
	return nil
}

func teardown(ctx context.Context) error {
	var errs []error
	if err := drainPersisted(ctx); err != nil && logger != nil {
		logger.Warn("menu not saved", "err", err)
	}
	if repo != nil {
		errs = append(errs, repo.Close())
		repo = nil
	}
	if stopTracing != nil {
		errs = append(errs, stopTracing(context.WithoutCancel(ctx)))
		stopTracing = nil
	}
	svc = nil
	return errors.Join(errs...)
}

func init() {
	// PersistentPostRunE is skipped when a command fails.
	cobra.OnFinalize(func() {
		if err := teardown(context.Background()); err != nil && logger != nil {
			logger.Error("close", "err", err)
		}
	})

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/littlelemon/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}
