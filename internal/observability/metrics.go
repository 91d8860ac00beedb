// Package observability keeps run counters for scrape and import runs.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync/atomic"
)

// Metrics tracks counters for one process.
type Metrics struct {
	// Fetch metrics
	PagesFetched   atomic.Int64
	FetchFailures  atomic.Int64
	FetchesBlocked atomic.Int64

	// Import metrics
	RecordsImported atomic.Int64
	ImportFailures  atomic.Int64
	SongsCreated    atomic.Int64
	SongsReused     atomic.Int64
	DancesCreated   atomic.Int64
	DancesReused    atomic.Int64
	LinksCreated    atomic.Int64
	LinksSkipped    atomic.Int64

	// Archive metrics
	RecordsArchived atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metric struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) all() []metric {
	return []metric{
		{"dancedb_pages_fetched_total", "Stepsheet pages fetched", m.PagesFetched.Load()},
		{"dancedb_fetch_failures_total", "Stepsheet fetches that failed", m.FetchFailures.Load()},
		{"dancedb_fetches_blocked_total", "Fetches stopped by bot protection", m.FetchesBlocked.Load()},
		{"dancedb_records_imported_total", "Dance records imported", m.RecordsImported.Load()},
		{"dancedb_import_failures_total", "Dance records that failed to import", m.ImportFailures.Load()},
		{"dancedb_songs_created_total", "Song rows inserted", m.SongsCreated.Load()},
		{"dancedb_songs_reused_total", "Existing song rows reused", m.SongsReused.Load()},
		{"dancedb_dances_created_total", "Dance rows inserted", m.DancesCreated.Load()},
		{"dancedb_dances_reused_total", "Existing dance rows reused", m.DancesReused.Load()},
		{"dancedb_links_created_total", "Dance-song links inserted", m.LinksCreated.Load()},
		{"dancedb_links_skipped_total", "Dance-song links already present", m.LinksSkipped.Load()},
		{"dancedb_records_archived_total", "Records written to the archive", m.RecordsArchived.Load()},
	}
}

// WriteTo writes every counter in Prometheus text exposition format.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, mt := range m.all() {
		n, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
			mt.name, mt.help, mt.name, mt.name, mt.value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if _, err := m.WriteTo(w); err != nil {
		m.logger.Warn("write metrics", "error", err)
	}
}

// Snapshot returns all counters keyed by short name.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_fetched":    m.PagesFetched.Load(),
		"fetch_failures":   m.FetchFailures.Load(),
		"fetches_blocked":  m.FetchesBlocked.Load(),
		"records_imported": m.RecordsImported.Load(),
		"import_failures":  m.ImportFailures.Load(),
		"songs_created":    m.SongsCreated.Load(),
		"songs_reused":     m.SongsReused.Load(),
		"dances_created":   m.DancesCreated.Load(),
		"dances_reused":    m.DancesReused.Load(),
		"links_created":    m.LinksCreated.Load(),
		"links_skipped":    m.LinksSkipped.Load(),
		"records_archived": m.RecordsArchived.Load(),
	}
}

// LogSummary logs the non-zero counters at info level.
func (m *Metrics) LogSummary() {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k, v := range snap {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, snap[k])
	}
	m.logger.Info("run summary", args...)
}
