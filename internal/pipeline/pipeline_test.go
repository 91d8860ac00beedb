package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dancedb/dancedb/internal/archive"
	"github.com/dancedb/dancedb/internal/catalog"
	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/fetcher"
	"github.com/dancedb/dancedb/internal/importer"
	"github.com/dancedb/dancedb/internal/observability"
	"github.com/dancedb/dancedb/internal/stepsheet"
	"github.com/dancedb/dancedb/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// stubScraper serves canned records and fails for unknown URLs.
type stubScraper struct {
	records map[string]stepsheet.DanceRecord
	calls   []string
}

func (s *stubScraper) Scrape(_ context.Context, pageURL string) (stepsheet.DanceRecord, error) {
	s.calls = append(s.calls, pageURL)
	rec, ok := s.records[pageURL]
	if !ok {
		return stepsheet.DanceRecord{}, &types.FetchError{URL: pageURL, StatusCode: 404, Reason: types.ReasonHTTPError, Err: fmt.Errorf("HTTP 404")}
	}
	rec.URL = pageURL
	rec.SheetID = stepsheet.SheetID(pageURL)
	return rec, nil
}

func dance(name string, songs ...string) stepsheet.DanceRecord {
	r := stepsheet.DanceRecord{
		DanceName:      name,
		Choreographers: []stepsheet.Choreographer{},
		Level:          "Beginner",
		Songs:          []stepsheet.Song{},
		Steps:          []stepsheet.Step{},
	}
	for _, s := range songs {
		r.Songs = append(r.Songs, stepsheet.Song{Title: s})
	}
	return r
}

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	cfg := config.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "dance_db.sqlite3")}
	s, err := catalog.Open(context.Background(), cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const (
	urlA = "https://www.copperknob.co.uk/stepsheets/1/a"
	urlB = "https://www.copperknob.co.uk/stepsheets/2/b"
	urlC = "https://www.copperknob.co.uk/stepsheets/3/c"
)

func TestRunImportsAndReportsFetchFailures(t *testing.T) {
	store := openTestStore(t)
	metrics := observability.NewMetrics(testLogger)
	scraper := &stubScraper{records: map[string]stepsheet.DanceRecord{
		urlA: dance("Dance A", "Countdown"),
		urlC: dance("Dance C", "Countdown"),
	}}

	p := New(scraper, testLogger,
		WithImporter(importer.New(store, testLogger, importer.WithMetrics(metrics))),
		WithMetrics(metrics),
	)

	var events []EventType
	p.Observe(ObserverFunc(func(e Event) { events = append(events, e.Type) }))

	report := p.Run(context.Background(), []string{urlA, urlB, urlC})

	assert.Equal(t, []string{urlA, urlB, urlC}, scraper.calls)
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, 1, report.SongsCreated)
	assert.Equal(t, 1, report.SongsReused)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 2, report.Failures[0].Index)
	assert.Equal(t, "Failed to fetch: "+urlB, FailureMessage(report.Failures[0]))
	assert.ErrorIs(t, report.Failures[0], ErrFetchFailed)

	assert.Equal(t, []EventType{
		EventFetched, EventImported,
		EventFetchFailed,
		EventFetched, EventImported,
	}, events)

	assert.Equal(t, int64(2), metrics.PagesFetched.Load())
	assert.Equal(t, int64(1), metrics.FetchFailures.Load())
	assert.Equal(t, int64(2), metrics.RecordsImported.Load())

	songs, err := store.ListSongs(context.Background())
	require.NoError(t, err)
	assert.Len(t, songs, 1)
}

func TestRunReportsImportFailures(t *testing.T) {
	store := openTestStore(t)
	scraper := &stubScraper{records: map[string]stepsheet.DanceRecord{
		urlA: dance("Dance A"),
		urlB: dance(""),
		urlC: dance("Dance C"),
	}}
	p := New(scraper, testLogger, WithImporter(importer.New(store, testLogger)))

	report := p.Run(context.Background(), []string{urlA, urlB, urlC})

	assert.Equal(t, 2, report.Saved)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], types.ErrMissingName)
	assert.NotErrorIs(t, report.Failures[0], ErrFetchFailed)
	assert.True(t, strings.HasPrefix(FailureMessage(report.Failures[0]), "Failed to import "+urlB))
}

func TestScrapeOnlyArchives(t *testing.T) {
	dir := t.TempDir()
	arch, err := archive.NewFileArchive("jsonl", dir, testLogger)
	require.NoError(t, err)

	scraper := &stubScraper{records: map[string]stepsheet.DanceRecord{urlA: dance("Dance A")}}
	p := New(scraper, testLogger, WithArchive(arch))

	var scraped []stepsheet.DanceRecord
	p.Observe(ObserverFunc(func(e Event) {
		if e.Type == EventFetched {
			scraped = append(scraped, *e.Record)
		}
	}))

	report := p.Run(context.Background(), []string{urlA, urlB})
	require.NoError(t, arch.Close())

	assert.Zero(t, report.Saved)
	assert.Len(t, report.Failures, 1)
	require.Len(t, scraped, 1)
	assert.Equal(t, "1", scraped[0].SheetID)

	f, err := os.Open(filepath.Join(dir, "stepsheets.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	var lines int
	for sc := bufio.NewScanner(f); sc.Scan(); {
		lines++
	}
	assert.Equal(t, 1, lines)
}

func TestScrapeReturnsFetchError(t *testing.T) {
	p := New(&stubScraper{}, testLogger)
	_, err := p.Scrape(context.Background(), urlA)

	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, types.ReasonHTTPError, fe.Reason)
}

func TestMiddlewareDropsRecords(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.InsertDance(context.Background(), &catalog.Dance{Name: "Known", StepsheetURL: urlC}))

	scraper := &stubScraper{records: map[string]stepsheet.DanceRecord{
		urlA: dance("Dance A"),
		urlC: dance("Known"),
	}}
	p := New(scraper, testLogger, WithImporter(importer.New(store, testLogger)))
	p.Use(NewDedupMiddleware())
	p.Use(&SkipExistingMiddleware{Finder: store})

	var dropped []string
	p.Observe(ObserverFunc(func(e Event) {
		if e.Type == EventDropped {
			dropped = append(dropped, e.Stage)
		}
	}))

	report := p.Run(context.Background(), []string{urlA, urlA, urlC})

	assert.Equal(t, 1, report.Saved)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"dedup", "skip_existing"}, dropped)
}

func TestLevelFilterMiddleware(t *testing.T) {
	m := &LevelFilterMiddleware{Levels: []string{"improver"}}
	ctx := context.Background()

	keep := stepsheet.DanceRecord{Level: "Improver"}
	got, err := m.Process(ctx, &keep)
	require.NoError(t, err)
	assert.NotNil(t, got)

	drop := stepsheet.DanceRecord{Level: "Beginner"}
	got, err = m.Process(ctx, &drop)
	require.NoError(t, err)
	assert.Nil(t, got)

	all := &LevelFilterMiddleware{}
	got, err = all.Process(ctx, &drop)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	scraper := &stubScraper{records: map[string]stepsheet.DanceRecord{
		urlA: dance("Dance A"),
		urlB: dance("Dance B"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(scraper, testLogger, WithDelay(time.Hour))
	p.Observe(ObserverFunc(func(e Event) {
		if e.Type == EventFetched {
			cancel()
		}
	}))

	done := make(chan struct{})
	go func() {
		p.Run(ctx, []string{urlA, urlB})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.Equal(t, []string{urlA}, scraper.calls)
}

const stepsheetPage = `<html><head><title>CopperKnob - Power Jam - Kathi Stringer</title></head><body>
<div class="sheethead"><h1 class="sheettitle">Power Jam</h1></div>
<div class="sheetinfocount"><span class="sheetinfovalue">22</span></div>
<div class="sheetinfowall"><span class="sheetinfovalue">4</span></div>
<div class="sheetinfolevel"><span class="sheetinfovalue">Beginner</span></div>
<div class="sheetinfochoreographer"><span class="sheetinfovalue">Kathi Stringer (USA) - March 2012</span></div>
<div class="sheetinfomusic"><span class="sheetinfovalue"><span><a href="/m/1">Power Jam</a> - The Jam Band</span></span></div>
<div class="sheetcontent"><p>S1: Walks<br>1-2 Walk R, L</p></div>
</body></html>`

func TestRunEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stepsheets/34792/power-jam" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(stepsheetPage))
	}))
	defer srv.Close()

	fcfg := config.DefaultConfig().Fetcher
	fcfg.CloudflareBypass = false
	f, err := fetcher.NewHTTPFetcher(&fcfg, testLogger)
	require.NoError(t, err)

	scraper := stepsheet.NewScraper(f, config.DefaultSelectors(), testLogger)
	defer scraper.Close()

	store := openTestStore(t)
	p := New(scraper, testLogger, WithImporter(importer.New(store, testLogger)))

	good := srv.URL + "/stepsheets/34792/power-jam"
	report := p.Run(context.Background(), []string{good, srv.URL + "/stepsheets/1/missing"})

	assert.Equal(t, 1, report.Saved)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Failed to fetch: "+srv.URL+"/stepsheets/1/missing", FailureMessage(report.Failures[0]))

	d, err := store.FindDanceByURL(context.Background(), good)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Power Jam", d.Name)
	assert.Equal(t, "Kathi Stringer", d.Choreographer)
	assert.Equal(t, "March 2012", d.ReleaseDate)
	assert.Equal(t, "22", d.Count)

	songs, err := store.SongsForDance(context.Background(), d.ID)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Power Jam", songs[0].Title)
}
