package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dancedb/dancedb/internal/catalog"
	"github.com/dancedb/dancedb/internal/types"
)

// LinkRow is one row of a links CSV: a stepsheet URL and the song it is
// danced to.
type LinkRow struct {
	StepsheetURL   string
	DanceName      string
	SongName       string
	Choreographers string
	Level          string
	Counts         string
}

// LinkReport summarizes an ImportLinks run.
type LinkReport struct {
	DancesCreated int
	DancesReused  int
	SongsCreated  int
	SongsReused   int
	LinksCreated  int
	LinksSkipped  int
	Failures      []*types.ImportError
}

// ImportLinks imports rows one transaction at a time. Songs are found or
// created by title and dances by stepsheet URL; a link is only inserted when
// the pair is not linked yet, so re-running the same rows is a no-op.
func (im *Importer) ImportLinks(ctx context.Context, rows []LinkRow) LinkReport {
	var report LinkReport

	for i, row := range rows {
		if ctx.Err() != nil {
			im.logger.Warn("link import cancelled", "processed", i, "total", len(rows))
			break
		}

		if err := im.importLink(ctx, row, &report); err != nil {
			im.metrics.ImportFailures.Add(1)
			im.logger.Warn("link row skipped", "index", i+1, "url", row.StepsheetURL, "error", err)
			report.Failures = append(report.Failures, &types.ImportError{Index: i + 1, URL: row.StepsheetURL, Err: err})
		}
	}

	im.logger.Info("links imported",
		"dances_created", report.DancesCreated,
		"dances_reused", report.DancesReused,
		"links_created", report.LinksCreated,
		"links_skipped", report.LinksSkipped,
		"failed", len(report.Failures),
	)
	return report
}

func (im *Importer) importLink(ctx context.Context, row LinkRow, report *LinkReport) error {
	stepsheetURL := strings.TrimSpace(row.StepsheetURL)
	if stepsheetURL == "" {
		return fmt.Errorf("empty stepsheet link: %w", types.ErrInvalidURL)
	}
	songTitle := strings.TrimSpace(row.SongName)
	name := strings.TrimSpace(row.DanceName)
	if name == "" {
		name = songTitle
	}

	var step LinkReport
	err := im.store.RunInTx(ctx, func(ctx context.Context, repo *catalog.Repo) error {
		var song *catalog.Song
		if songTitle != "" {
			s, created, err := repo.FindOrCreateSong(ctx, songTitle, im.match)
			if err != nil {
				return err
			}
			song = s
			if created {
				step.SongsCreated++
			} else {
				step.SongsReused++
			}
		}

		dance, err := repo.FindDanceByURL(ctx, stepsheetURL)
		if err != nil {
			return err
		}
		if dance == nil {
			if name == "" {
				return types.ErrMissingName
			}
			dance = &catalog.Dance{
				Name:          name,
				Choreographer: strings.TrimSpace(row.Choreographers),
				Level:         strings.TrimSpace(row.Level),
				Count:         strings.TrimSpace(row.Counts),
				StepsheetURL:  stepsheetURL,
			}
			if err := repo.InsertDance(ctx, dance); err != nil {
				return err
			}
			step.DancesCreated++
		} else {
			step.DancesReused++
		}

		if song == nil {
			return nil
		}
		linked, err := repo.LinkExists(ctx, dance.ID, song.ID)
		if err != nil {
			return err
		}
		if linked {
			step.LinksSkipped++
			return nil
		}
		if err := repo.LinkDanceSong(ctx, dance.ID, song.ID); err != nil {
			return err
		}
		step.LinksCreated++
		return nil
	})
	if err != nil {
		return err
	}

	report.DancesCreated += step.DancesCreated
	report.DancesReused += step.DancesReused
	report.SongsCreated += step.SongsCreated
	report.SongsReused += step.SongsReused
	report.LinksCreated += step.LinksCreated
	report.LinksSkipped += step.LinksSkipped

	im.metrics.DancesCreated.Add(int64(step.DancesCreated))
	im.metrics.DancesReused.Add(int64(step.DancesReused))
	im.metrics.SongsCreated.Add(int64(step.SongsCreated))
	im.metrics.SongsReused.Add(int64(step.SongsReused))
	im.metrics.LinksCreated.Add(int64(step.LinksCreated))
	im.metrics.LinksSkipped.Add(int64(step.LinksSkipped))
	return nil
}

// Column headers of the links CSV.
const (
	headerStepsheetLink  = "stepsheet link"
	headerDanceName      = "dance name"
	headerSongName       = "song name"
	headerChoreographers = "choreographers"
	headerLevel          = "level"
	headerCounts         = "counts"
)

// ReadLinks parses a links CSV. A file whose first row names a
// "Stepsheet Link" column is read by header; otherwise every row is read as
// link, song. Blank rows are skipped.
func ReadLinks(r io.Reader) ([]LinkRow, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	rows := make([]LinkRow, 0, len(records))
	if _, ok := cols[headerStepsheetLink]; ok {
		cell := func(rec []string, name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		for _, rec := range records[1:] {
			if blank(rec) {
				continue
			}
			rows = append(rows, LinkRow{
				StepsheetURL:   cell(rec, headerStepsheetLink),
				DanceName:      cell(rec, headerDanceName),
				SongName:       cell(rec, headerSongName),
				Choreographers: cell(rec, headerChoreographers),
				Level:          cell(rec, headerLevel),
				Counts:         cell(rec, headerCounts),
			})
		}
		return rows, nil
	}

	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := LinkRow{StepsheetURL: strings.TrimSpace(rec[0])}
		if len(rec) > 1 {
			row.SongName = strings.TrimSpace(rec[1])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadURLs returns the first http(s) cell of every CSV row, in order. Rows
// without one, such as a header, are skipped.
func ReadURLs(r io.Reader) ([]string, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, rec := range records {
		for _, c := range rec {
			c = strings.TrimSpace(c)
			lc := strings.ToLower(c)
			if strings.HasPrefix(lc, "http://") || strings.HasPrefix(lc, "https://") {
				urls = append(urls, c)
				break
			}
		}
	}
	return urls, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
