package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dancedb/dancedb/internal/types"
)

// RetryFetcher retries retryable fetch failures with exponential backoff.
type RetryFetcher struct {
	next       Fetcher
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryFetcher wraps next with retry handling.
func NewRetryFetcher(next Fetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	return &RetryFetcher{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger.With("component", "retry_fetcher"),
	}
}

// Fetch implements Fetcher.
func (r *RetryFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		req.Attempt = attempt
		resp, err := r.next.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.IsRetryable() || attempt == r.maxRetries {
			break
		}

		wait := r.backoff(attempt)
		if fe.RetryAfter > wait {
			wait = fe.RetryAfter
		}
		r.logger.Debug("retrying fetch",
			"url", req.URLString(),
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, &types.FetchError{URL: req.URLString(), Reason: types.ReasonTimeout, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}

	if r.maxRetries > 0 {
		var fe *types.FetchError
		if errors.As(lastErr, &fe) && fe.IsRetryable() {
			fe.Err = errors.Join(types.ErrMaxRetries, fe.Err)
		}
	}
	return nil, lastErr
}

func (r *RetryFetcher) backoff(attempt int) time.Duration {
	return RandomDelay(r.baseDelay * time.Duration(1<<attempt))
}

// Close closes the wrapped fetcher.
func (r *RetryFetcher) Close() error {
	return r.next.Close()
}

// Type returns the wrapped fetcher's type.
func (r *RetryFetcher) Type() string {
	return r.next.Type()
}
