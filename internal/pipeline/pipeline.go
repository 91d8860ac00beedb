// Package pipeline runs stepsheet URLs through fetch, parse, archive and
// import, one URL at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancedb/dancedb/internal/archive"
	"github.com/dancedb/dancedb/internal/fetcher"
	"github.com/dancedb/dancedb/internal/importer"
	"github.com/dancedb/dancedb/internal/observability"
	"github.com/dancedb/dancedb/internal/stepsheet"
	"github.com/dancedb/dancedb/internal/types"
)

// ErrFetchFailed marks run failures that happened before a record existed.
var ErrFetchFailed = errors.New("fetch failed")

// Scraper resolves a URL to a parsed record.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (stepsheet.DanceRecord, error)
}

// Middleware processes a record between parsing and import.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process inspects or rewrites a record. Return nil to drop it.
	Process(ctx context.Context, rec *stepsheet.DanceRecord) (*stepsheet.DanceRecord, error)
}

// Pipeline drives scrape and import runs. A Pipeline without an importer
// only scrapes and archives.
type Pipeline struct {
	scraper     Scraper
	importer    *importer.Importer
	archive     archive.Archive
	middlewares []Middleware
	observers   []Observer
	metrics     *observability.Metrics
	delay       time.Duration
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithImporter imports every record that survives the middleware chain.
func WithImporter(im *importer.Importer) Option {
	return func(p *Pipeline) { p.importer = im }
}

// WithArchive stores every parsed record in a.
func WithArchive(a archive.Archive) Option {
	return func(p *Pipeline) { p.archive = a }
}

// WithDelay waits about d between URLs.
func WithDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.delay = d }
}

// WithMetrics records run counters on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// New creates a Pipeline fetching through scraper.
func New(scraper Scraper, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		scraper: scraper,
		logger:  logger.With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observability.NewMetrics(logger)
	}
	return p
}

// Use adds a middleware to the chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Observe registers o for run events.
func (p *Pipeline) Observe(o Observer) {
	p.observers = append(p.observers, o)
}

// Scrape fetches and parses one URL. Failures are fetch failures only.
func (p *Pipeline) Scrape(ctx context.Context, pageURL string) (stepsheet.DanceRecord, error) {
	return p.scrape(ctx, 0, pageURL)
}

func (p *Pipeline) scrape(ctx context.Context, index int, pageURL string) (stepsheet.DanceRecord, error) {
	start := time.Now()
	rec, err := p.scraper.Scrape(ctx, pageURL)
	if err != nil {
		p.metrics.FetchFailures.Add(1)
		if types.IsBlocked(err) {
			p.metrics.FetchesBlocked.Add(1)
		}
		p.logger.Warn("fetch failed", "url", pageURL, "error", err)
		p.emit(Event{Type: EventFetchFailed, Index: index, URL: pageURL, Err: err})
		return stepsheet.DanceRecord{}, err
	}

	p.metrics.PagesFetched.Add(1)
	p.logger.Info("stepsheet fetched",
		"url", pageURL,
		"dance", rec.DanceName,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	p.emit(Event{Type: EventFetched, Index: index, URL: pageURL, Record: &rec})
	return rec, nil
}

// Run processes urls strictly in order and returns the import report.
// A failing URL is recorded and skipped. The run stops between URLs once
// ctx is done.
func (p *Pipeline) Run(ctx context.Context, urls []string) importer.Report {
	var report importer.Report

	for i, u := range urls {
		if i > 0 && !p.wait(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		index := i + 1
		outcome, ok, err := p.process(ctx, index, u)
		if err != nil {
			report.Failures = append(report.Failures, &types.ImportError{Index: index, URL: u, Err: err})
			continue
		}
		if ok {
			report.Add(outcome)
		}
	}

	if ctx.Err() != nil {
		p.logger.Warn("run cancelled", "processed", report.Saved+len(report.Failures), "total", len(urls))
	}
	p.logger.Info("run finished",
		"urls", len(urls),
		"saved", report.Saved,
		"failed", len(report.Failures),
	)
	return report
}

// process runs one URL through every stage. ok is false when the record
// was dropped or no importer is configured.
func (p *Pipeline) process(ctx context.Context, index int, pageURL string) (importer.Outcome, bool, error) {
	rec, err := p.scrape(ctx, index, pageURL)
	if err != nil {
		return importer.Outcome{}, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	current := &rec
	for _, mw := range p.middlewares {
		next, err := mw.Process(ctx, current)
		if err != nil {
			err = fmt.Errorf("%s: %w", mw.Name(), err)
			p.emit(Event{Type: EventImportFailed, Index: index, URL: pageURL, Record: current, Err: err})
			return importer.Outcome{}, false, err
		}
		if next == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "url", pageURL)
			p.emit(Event{Type: EventDropped, Index: index, URL: pageURL, Record: current, Stage: mw.Name()})
			return importer.Outcome{}, false, nil
		}
		current = next
	}

	if p.archive != nil {
		if err := p.archive.Store(ctx, []stepsheet.DanceRecord{*current}); err != nil {
			p.logger.Error("archive failed", "backend", p.archive.Name(), "url", pageURL, "error", err)
		} else {
			p.metrics.RecordsArchived.Add(1)
		}
	}

	if p.importer == nil {
		return importer.Outcome{}, false, nil
	}

	outcome, err := p.importer.ImportOne(ctx, importer.Entry{URL: pageURL, Record: *current})
	if err != nil {
		p.logger.Warn("import failed", "url", pageURL, "error", err)
		p.emit(Event{Type: EventImportFailed, Index: index, URL: pageURL, Record: current, Err: err})
		return importer.Outcome{}, false, err
	}

	p.emit(Event{Type: EventImported, Index: index, URL: pageURL, Record: current, DanceID: outcome.DanceID})
	return outcome, true, nil
}

// wait sleeps for the jittered delay. It reports false if ctx ended first.
func (p *Pipeline) wait(ctx context.Context) bool {
	d := fetcher.RandomDelay(p.delay)
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// FailureMessage renders a run failure for users. Fetch failures read
// "Failed to fetch: <url>".
func FailureMessage(f *types.ImportError) string {
	if errors.Is(f.Err, ErrFetchFailed) {
		return "Failed to fetch: " + f.URL
	}
	return fmt.Sprintf("Failed to import %s: %v", f.URL, f.Err)
}
