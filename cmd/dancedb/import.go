package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dancedb/dancedb/internal/archive"
	"github.com/dancedb/dancedb/internal/catalog"
	"github.com/dancedb/dancedb/internal/importer"
	"github.com/dancedb/dancedb/internal/observability"
	"github.com/dancedb/dancedb/internal/pipeline"
)

var (
	importSkipExisting bool
	importLevels       string
	importDelay        string
	importMetrics      bool
	linksLimit         int
)

// importCmd creates the "import" subcommand.
func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [url...]",
		Short: "Scrape stepsheets and add them to the catalog",
		Long: `Scrape each stepsheet URL in order and insert a dance for it. Songs are
reused when a song with the same title already exists. A URL that fails to
fetch or import is reported and skipped; the rest of the batch continues.

Importing the same URL twice creates two dances unless --skip-existing is set.`,
		RunE: runImport,
	}

	cmd.Flags().StringVarP(&urlFile, "file", "f", "", "CSV file of stepsheet URLs")
	cmd.Flags().BoolVar(&importSkipExisting, "skip-existing", false, "skip URLs already in the catalog or seen earlier in this run")
	cmd.Flags().StringVar(&importLevels, "level", "", "comma-separated levels to keep (e.g. beginner,improver)")
	cmd.Flags().StringVar(&importDelay, "delay", "", "delay between URLs (overrides import.delay)")
	cmd.Flags().BoolVar(&importMetrics, "metrics", false, "print run counters when done")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if importDelay != "" {
		d, err := time.ParseDuration(importDelay)
		if err != nil {
			return fmt.Errorf("invalid --delay: %w", err)
		}
		cfg.Import.Delay = d
	}

	urls, err := collectURLs(args, urlFile)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	store, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	scraper, err := newScraper(cfg, logger)
	if err != nil {
		return err
	}
	defer scraper.Close()

	arch, err := archive.New(ctx, cfg.Archive, logger)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if arch != nil {
		defer func() {
			if err := arch.Close(); err != nil {
				logger.Error("close archive", "error", err)
			}
		}()
	}

	metrics := observability.NewMetrics(logger)
	im := importer.New(store, logger,
		importer.WithSongMatch(catalog.SongMatch(cfg.Import.SongIdentity)),
		importer.WithMetrics(metrics),
	)
	p := pipeline.New(scraper, logger,
		pipeline.WithImporter(im),
		pipeline.WithArchive(arch),
		pipeline.WithDelay(cfg.Import.Delay),
		pipeline.WithMetrics(metrics),
	)
	if importSkipExisting {
		p.Use(pipeline.NewDedupMiddleware())
		p.Use(&pipeline.SkipExistingMiddleware{Finder: store})
	}
	if importLevels != "" {
		p.Use(&pipeline.LevelFilterMiddleware{Levels: strings.Split(importLevels, ",")})
	}

	start := time.Now()
	report := p.Run(ctx, urls)
	metrics.LogSummary()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d of %d stepsheets in %s\n", report.Saved, len(urls), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "  Songs:  %d new, %d reused\n", report.SongsCreated, report.SongsReused)
	fmt.Fprintf(out, "  Links:  %d\n", report.LinksCreated)
	if len(report.Failures) > 0 {
		fmt.Fprintf(out, "  Failed: %d\n", len(report.Failures))
	}
	printFailures(cmd.ErrOrStderr(), report)

	if importMetrics {
		if _, err := metrics.WriteTo(out); err != nil {
			return err
		}
	}
	return nil
}

// linksCmd creates the "links" subcommand.
func linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links <csv>",
		Short: "Import a links CSV into the catalog without scraping",
		Long: `Read a CSV with the columns "Stepsheet Link, Dance Name, Song Name, Trash,
Choreographers, Level, Counts" (or plain "link,song" rows) and add each row to
the catalog. Songs are matched by title and dances by stepsheet link; a
dance-song link is only added when it does not exist yet, so the same file can
be imported again safely.`,
		Args: cobra.ExactArgs(1),
		RunE: runLinks,
	}

	cmd.Flags().IntVarP(&linksLimit, "limit", "n", 0, "import only the first n rows (0 = all)")

	return cmd
}

func runLinks(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open links file: %w", err)
	}
	rows, err := importer.ReadLinks(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if linksLimit > 0 && len(rows) > linksLimit {
		rows = rows[:linksLimit]
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	store, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	im := importer.New(store, logger, importer.WithSongMatch(catalog.SongMatch(cfg.Import.SongIdentity)))
	report := im.ImportLinks(ctx, rows)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d rows\n", len(rows))
	fmt.Fprintf(out, "  Dances: %d new, %d existing\n", report.DancesCreated, report.DancesReused)
	fmt.Fprintf(out, "  Songs:  %d new, %d existing\n", report.SongsCreated, report.SongsReused)
	fmt.Fprintf(out, "  Links:  %d new, %d already present\n", report.LinksCreated, report.LinksSkipped)
	for _, fail := range report.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "row %d (%s): %v\n", fail.Index, fail.URL, fail.Err)
	}
	return nil
}
