package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout       = errors.New("request timed out")
	ErrMaxRetries    = errors.New("max retries exceeded")
	ErrBlocked       = errors.New("blocked by bot protection")
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrMissingName   = errors.New("dance name is required")
	ErrNotFound      = errors.New("not found")
)

// FetchReason classifies why a fetch failed.
type FetchReason string

const (
	ReasonTimeout   FetchReason = "timeout"
	ReasonHTTPError FetchReason = "http_error"
	ReasonBlocked   FetchReason = "blocked"
	ReasonNetwork   FetchReason = "network"
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Reason     FetchReason
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (%s, status %d): %v", e.URL, e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s (%s): %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// IsBlocked reports whether err is a fetch that hit a bot-protection wall.
func IsBlocked(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason == ReasonBlocked
	}
	return errors.Is(err, ErrBlocked)
}

// StorageError wraps errors that occur in a persistence backend.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("storage error (%s, %s): %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ImportError records a single record that could not be imported.
// Index is 1-based.
type ImportError struct {
	Index int
	URL   string
	Err   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import record %d (%s): %v", e.Index, e.URL, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
