// Package archive keeps a copy of every scraped DanceRecord outside the
// catalog, as files or MongoDB documents.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/stepsheet"
)

// Archive is the interface for all archive backends.
type Archive interface {
	// Store persists a batch of records.
	Store(ctx context.Context, records []stepsheet.DanceRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// New builds the backends named in cfg. It returns nil when archiving is
// off, and a fan-out archive when more than one backend is configured.
func New(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (Archive, error) {
	kinds := cfg.Types()
	if len(kinds) == 0 {
		return nil, nil
	}

	backends := make([]Archive, 0, len(kinds))
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, kind := range kinds {
		var (
			b   Archive
			err error
		)
		if kind == "mongodb" {
			b, err = NewMongoArchive(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		} else {
			b, err = NewFileArchive(kind, cfg.OutputPath, logger)
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		backends = append(backends, b)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiArchive(backends, logger), nil
}

// Document converts a record to the archived document shape: the record's
// JSON keys plus _url, _sheet_id and _timestamp.
func Document(r stepsheet.DanceRecord, ts time.Time) (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	doc := make(map[string]any, 16)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	doc["_url"] = r.URL
	doc["_sheet_id"] = r.SheetID
	doc["_timestamp"] = ts.UTC()
	return doc, nil
}

// --- Fan-Out ---

// MultiArchive writes records to several backends. Every backend is tried
// and the first error is returned.
type MultiArchive struct {
	backends []Archive
	logger   *slog.Logger
}

// NewMultiArchive creates an archive that fans out to backends.
func NewMultiArchive(backends []Archive, logger *slog.Logger) *MultiArchive {
	return &MultiArchive{
		backends: backends,
		logger:   logger.With("component", "multi_archive"),
	}
}

func (a *MultiArchive) Name() string { return "multi" }

func (a *MultiArchive) Store(ctx context.Context, records []stepsheet.DanceRecord) error {
	var firstErr error
	for _, b := range a.backends {
		if err := b.Store(ctx, records); err != nil {
			a.logger.Error("backend store failed", "backend", b.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (a *MultiArchive) Close() error {
	var firstErr error
	for _, b := range a.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
