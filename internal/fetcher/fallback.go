package fetcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dancedb/dancedb/internal/types"
)

// FallbackFetcher tries the primary fetcher first and re-fetches with the
// secondary one when the primary is blocked by an anti-bot challenge.
type FallbackFetcher struct {
	primary   Fetcher
	secondary Fetcher
	logger    *slog.Logger
}

// NewFallbackFetcher creates a fetcher that escalates blocked pages.
func NewFallbackFetcher(primary, secondary Fetcher, logger *slog.Logger) *FallbackFetcher {
	return &FallbackFetcher{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With("component", "fallback_fetcher"),
	}
}

// Fetch implements Fetcher.
func (f *FallbackFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	resp, err := f.primary.Fetch(ctx, req)
	if err == nil || !types.IsBlocked(err) {
		return resp, err
	}

	f.logger.Info("blocked, retrying with fallback fetcher",
		"url", req.URLString(),
		"fetcher", f.secondary.Type(),
	)
	return f.secondary.Fetch(ctx, req)
}

// Close closes both fetchers.
func (f *FallbackFetcher) Close() error {
	return errors.Join(f.primary.Close(), f.secondary.Close())
}

// Type returns the fetcher type identifier.
func (f *FallbackFetcher) Type() string {
	return f.primary.Type() + "+" + f.secondary.Type()
}
