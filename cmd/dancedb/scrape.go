package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dancedb/dancedb/internal/archive"
	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/importer"
	"github.com/dancedb/dancedb/internal/observability"
	"github.com/dancedb/dancedb/internal/pipeline"
)

var (
	scrapeArchive string
	scrapeOutput  string
	scrapeQuiet   bool
	urlFile       string
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Fetch and parse stepsheets without touching the catalog",
		Long: `Fetch each stepsheet URL in order and print its record as JSON, one per
line. Records can also be archived to JSON, JSONL, CSV or MongoDB.`,
		RunE: runScrape,
	}

	cmd.Flags().StringVarP(&urlFile, "file", "f", "", "CSV file of stepsheet URLs")
	cmd.Flags().StringVar(&scrapeArchive, "archive", "", "archive type: json, jsonl, csv, mongodb (comma list allowed)")
	cmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "archive output directory")
	cmd.Flags().BoolVarP(&scrapeQuiet, "quiet", "q", false, "do not print records")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if scrapeArchive != "" {
		cfg.Archive.Type = strings.ToLower(scrapeArchive)
	}
	if scrapeOutput != "" {
		cfg.Archive.OutputPath = scrapeOutput
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	urls, err := collectURLs(args, urlFile)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

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
	p := pipeline.New(scraper, logger,
		pipeline.WithArchive(arch),
		pipeline.WithDelay(cfg.Import.Delay),
		pipeline.WithMetrics(metrics),
	)

	out := json.NewEncoder(cmd.OutOrStdout())
	var printErr error
	if !scrapeQuiet {
		p.Observe(pipeline.ObserverFunc(func(e pipeline.Event) {
			if e.Type == pipeline.EventFetched && printErr == nil {
				printErr = out.Encode(e.Record)
			}
		}))
	}

	report := p.Run(ctx, urls)
	if printErr != nil {
		return fmt.Errorf("write record: %w", printErr)
	}
	metrics.LogSummary()

	printFailures(cmd.ErrOrStderr(), report)
	if len(report.Failures) > 0 && len(report.Failures) == len(urls) {
		return fmt.Errorf("no stepsheet could be scraped")
	}
	return nil
}

// collectURLs merges positional URLs with the URLs listed in file and
// validates every one.
func collectURLs(args []string, file string) ([]string, error) {
	urls := append([]string(nil), args...)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open url file: %w", err)
		}
		defer f.Close()

		fromFile, err := importer.ReadURLs(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		urls = append(urls, fromFile...)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("no stepsheet URLs given (pass URLs or --file)")
	}
	for _, u := range urls {
		if err := config.ValidateURL(u); err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", u, err)
		}
	}
	return urls, nil
}

// printFailures writes one line per failed URL.
func printFailures(w io.Writer, report importer.Report) {
	for _, f := range report.Failures {
		fmt.Fprintln(w, pipeline.FailureMessage(f))
	}
}
