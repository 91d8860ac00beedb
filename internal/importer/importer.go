// Package importer writes scraped dance records into the catalog, reusing
// existing songs and dances where their natural keys match.
package importer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dancedb/dancedb/internal/catalog"
	"github.com/dancedb/dancedb/internal/observability"
	"github.com/dancedb/dancedb/internal/stepsheet"
	"github.com/dancedb/dancedb/internal/types"
)

// Entry is one record to import together with the URL it was scraped from.
type Entry struct {
	URL    string
	Record stepsheet.DanceRecord
}

// Report summarizes an import run.
type Report struct {
	Saved        int
	SongsCreated int
	SongsReused  int
	LinksCreated int
	Failures     []*types.ImportError
}

// Add counts one saved record.
func (r *Report) Add(o Outcome) {
	r.Saved++
	r.SongsCreated += o.SongsCreated
	r.SongsReused += o.SongsReused
	r.LinksCreated += o.LinksCreated
}

// Importer inserts records into a catalog store.
type Importer struct {
	store   *catalog.Store
	match   catalog.SongMatch
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithSongMatch sets how song titles are compared. The default is exact.
func WithSongMatch(m catalog.SongMatch) Option {
	return func(im *Importer) {
		if m != "" {
			im.match = m
		}
	}
}

// WithMetrics records import counters on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(im *Importer) {
		if m != nil {
			im.metrics = m
		}
	}
}

// New creates an Importer writing to store.
func New(store *catalog.Store, logger *slog.Logger, opts ...Option) *Importer {
	im := &Importer{
		store:  store,
		match:  catalog.SongMatchExact,
		logger: logger.With("component", "importer"),
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.metrics == nil {
		im.metrics = observability.NewMetrics(logger)
	}
	return im
}

// Outcome describes one committed record.
type Outcome struct {
	DanceID      int64
	SongsCreated int
	SongsReused  int
	LinksCreated int
}

// ImportOne inserts a single record as one transaction. A record without a
// name fails with types.ErrMissingName and leaves the store untouched.
func (im *Importer) ImportOne(ctx context.Context, e Entry) (Outcome, error) {
	res, err := im.importOne(ctx, e)
	if err != nil {
		im.metrics.ImportFailures.Add(1)
		return Outcome{}, err
	}
	im.count(res)
	return res, nil
}

func (im *Importer) importOne(ctx context.Context, e Entry) (Outcome, error) {
	var res Outcome

	name := DisplayName(e.Record)
	if name == "" {
		return res, types.ErrMissingName
	}

	stepsheetURL := e.URL
	if stepsheetURL == "" {
		stepsheetURL = e.Record.URL
	}

	dance := &catalog.Dance{
		Name:          name,
		Choreographer: strings.Join(e.Record.ChoreographerNames(), ", "),
		ReleaseDate:   e.Record.ReleaseDate,
		Level:         e.Record.Level,
		Count:         e.Record.Count,
		Wall:          e.Record.Wall,
		StepsheetURL:  stepsheetURL,
		Notes:         e.Record.Summary,
	}

	err := im.store.RunInTx(ctx, func(ctx context.Context, repo *catalog.Repo) error {
		if err := repo.InsertDance(ctx, dance); err != nil {
			return err
		}
		res.DanceID = dance.ID

		for _, s := range e.Record.Songs {
			title := strings.TrimSpace(s.Title)
			if title == "" {
				continue
			}
			song, created, err := repo.FindOrCreateSong(ctx, title, im.match)
			if err != nil {
				return err
			}
			if created {
				res.SongsCreated++
			} else {
				res.SongsReused++
			}
			if err := repo.LinkDanceSong(ctx, dance.ID, song.ID); err != nil {
				return err
			}
			res.LinksCreated++
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return res, nil
}

// ImportBatch imports entries in order. A failing record is recorded in the
// report and skipped; the batch only stops early when ctx is done.
func (im *Importer) ImportBatch(ctx context.Context, entries []Entry) Report {
	var report Report

	for i, e := range entries {
		if ctx.Err() != nil {
			im.logger.Warn("import cancelled", "processed", i, "total", len(entries))
			break
		}

		res, err := im.ImportOne(ctx, e)
		if err != nil {
			im.logger.Warn("record skipped", "index", i+1, "url", e.URL, "error", err)
			report.Failures = append(report.Failures, &types.ImportError{Index: i + 1, URL: e.URL, Err: err})
			continue
		}

		report.Add(res)
		im.logger.Debug("record imported", "index", i+1, "dance_id", res.DanceID, "url", e.URL)
	}

	im.logger.Info("batch imported",
		"saved", report.Saved,
		"failed", len(report.Failures),
		"songs_created", report.SongsCreated,
		"songs_reused", report.SongsReused,
	)
	return report
}

func (im *Importer) count(res Outcome) {
	im.metrics.RecordsImported.Add(1)
	im.metrics.DancesCreated.Add(1)
	im.metrics.SongsCreated.Add(int64(res.SongsCreated))
	im.metrics.SongsReused.Add(int64(res.SongsReused))
	im.metrics.LinksCreated.Add(int64(res.LinksCreated))
}

// DisplayName resolves the name a record is stored under: the dance name,
// else the page title.
func DisplayName(r stepsheet.DanceRecord) string {
	if name := strings.TrimSpace(r.DanceName); name != "" {
		return name
	}
	return strings.TrimSpace(r.Title)
}
