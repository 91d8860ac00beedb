package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/dancedb/dancedb/internal/catalog"
	"github.com/dancedb/dancedb/internal/stepsheet"
)

// --- Built-in Middleware ---

// DedupMiddleware drops records already seen in this process, keyed by
// stepsheet id or, failing that, URL.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(_ context.Context, rec *stepsheet.DanceRecord) (*stepsheet.DanceRecord, error) {
	key := rec.SheetID
	if key == "" {
		key = rec.URL
	}
	if key == "" {
		return rec, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// DanceFinder looks up a catalog dance by stepsheet URL.
type DanceFinder interface {
	FindDanceByURL(ctx context.Context, stepsheetURL string) (*catalog.Dance, error)
}

// SkipExistingMiddleware drops records whose URL is already in the catalog,
// so re-running a batch does not insert the same dance twice.
type SkipExistingMiddleware struct {
	Finder DanceFinder
}

func (m *SkipExistingMiddleware) Name() string { return "skip_existing" }

func (m *SkipExistingMiddleware) Process(ctx context.Context, rec *stepsheet.DanceRecord) (*stepsheet.DanceRecord, error) {
	if rec.URL == "" {
		return rec, nil
	}
	d, err := m.Finder.FindDanceByURL(ctx, rec.URL)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return nil, nil
	}
	return rec, nil
}

// LevelFilterMiddleware keeps only records whose level contains one of
// Levels, compared case-insensitively. An empty list keeps everything.
type LevelFilterMiddleware struct {
	Levels []string
}

func (m *LevelFilterMiddleware) Name() string { return "level_filter" }

func (m *LevelFilterMiddleware) Process(_ context.Context, rec *stepsheet.DanceRecord) (*stepsheet.DanceRecord, error) {
	if len(m.Levels) == 0 {
		return rec, nil
	}
	level := strings.ToLower(rec.Level)
	for _, want := range m.Levels {
		if want = strings.ToLower(strings.TrimSpace(want)); want != "" && strings.Contains(level, want) {
			return rec, nil
		}
	}
	return nil, nil
}
