package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dancedb/dancedb/internal/catalog"
	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/fetcher"
	"github.com/dancedb/dancedb/internal/logging"
	"github.com/dancedb/dancedb/internal/stepsheet"
)

var (
	cfgFile string
	verbose bool
	dbPath  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dancedb",
		Short: "DanceDB: line dance stepsheet scraper and catalog",
		Long: `DanceDB scrapes line dance stepsheets into structured records and keeps
a local catalog of dances, songs and what you plan to learn next.

Commands:
  scrape   fetch and parse stepsheets, print or archive the records
  import   scrape stepsheets and add them to the catalog
  links    import a links CSV (stepsheet link + song) into the catalog
  dance    list, show, add, edit and delete catalog dances`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database DSN (overrides store.dsn)")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(linksCmd())
	rootCmd.AddCommand(danceCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "DanceDB %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPath != "" {
		cfg.Store.DSN = dbPath
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger from it.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Logging, verbose), nil
}

// openCatalog opens the configured catalog store.
func openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Store, error) {
	store, err := catalog.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return store, nil
}

// newScraper builds the fetcher chain and the stepsheet scraper on top.
func newScraper(cfg *config.Config, logger *slog.Logger) (*stepsheet.Scraper, error) {
	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	return stepsheet.NewScraper(f, cfg.Selectors, logger), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
