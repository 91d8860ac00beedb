package fetcher

import (
	"context"
	"log/slog"

	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New assembles the fetcher stack described by cfg: an HTTP fetcher,
// optionally backed by a headless browser for blocked pages, wrapped in
// retry handling.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	httpFetcher, err := NewHTTPFetcher(&cfg.Fetcher, logger)
	if err != nil {
		return nil, err
	}

	var f Fetcher = httpFetcher
	if cfg.Browser.Enabled {
		f = NewFallbackFetcher(httpFetcher, NewBrowserFetcher(&cfg.Browser, logger), logger)
	}

	return NewRetryFetcher(f, cfg.Fetcher.MaxRetries, cfg.Fetcher.RetryDelay, logger), nil
}
