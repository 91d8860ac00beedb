package stepsheet

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/fetcher"
	"github.com/dancedb/dancedb/internal/types"
)

// Scraper fetches stepsheet pages and parses them into DanceRecords.
type Scraper struct {
	fetcher   fetcher.Fetcher
	extractor *Extractor
	logger    *slog.Logger
}

// NewScraper creates a Scraper that fetches through f.
func NewScraper(f fetcher.Fetcher, sel config.SelectorConfig, logger *slog.Logger) *Scraper {
	return &Scraper{
		fetcher:   f,
		extractor: NewExtractor(sel),
		logger:    logger.With("component", "scraper"),
	}
}

// Scrape fetches pageURL and returns its record. The only failures are
// fetch failures; missing fields are left empty.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (DanceRecord, error) {
	req, err := types.NewRequest(pageURL)
	if err != nil {
		return DanceRecord{}, &types.FetchError{URL: pageURL, Reason: types.ReasonNetwork, Err: err}
	}

	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return DanceRecord{}, err
	}

	doc, err := resp.Document()
	if err != nil {
		return DanceRecord{}, &types.FetchError{URL: pageURL, StatusCode: resp.StatusCode, Reason: types.ReasonHTTPError, Err: fmt.Errorf("parse document: %w", err)}
	}

	rec := s.ParseDocument(pageURL, doc)
	s.logger.Debug("stepsheet parsed",
		"url", pageURL,
		"dance", rec.DanceName,
		"songs", len(rec.Songs),
		"steps", len(rec.Steps),
		"source", resp.Source,
	)
	return rec, nil
}

// Parse parses raw page HTML for pageURL.
func (s *Scraper) Parse(pageURL string, body []byte) (DanceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return DanceRecord{}, fmt.Errorf("parse document: %w", err)
	}
	return s.ParseDocument(pageURL, doc), nil
}

// ParseDocument extracts and assembles the record for an already parsed
// page. It is a pure function of its inputs.
func (s *Scraper) ParseDocument(pageURL string, doc *goquery.Document) DanceRecord {
	rec := Build(s.extractor.Extract(doc))
	rec.URL = pageURL
	rec.SheetID = SheetID(pageURL)
	return rec
}

// Close releases the underlying fetcher.
func (s *Scraper) Close() error {
	return s.fetcher.Close()
}
