package archive

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dancedb/dancedb/internal/stepsheet"
)

// now is replaced in tests.
var now = time.Now

// --- JSON Archive ---

// JSONArchive buffers documents and writes them as one JSON array on Close.
type JSONArchive struct {
	path   string
	docs   []map[string]any
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONArchive creates a JSON file archive.
func NewJSONArchive(outputPath string, logger *slog.Logger) (*JSONArchive, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &JSONArchive{
		path:   outputPath,
		docs:   make([]map[string]any, 0),
		logger: logger.With("component", "json_archive"),
	}, nil
}

func (a *JSONArchive) Name() string { return "json" }

func (a *JSONArchive) Store(_ context.Context, records []stepsheet.DanceRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range records {
		doc, err := Document(r, now())
		if err != nil {
			return err
		}
		a.docs = append(a.docs, doc)
	}
	a.logger.Debug("records buffered", "count", len(records), "total", len(a.docs))
	return nil
}

func (a *JSONArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Create(a.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.docs); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	a.logger.Info("JSON written", "path", a.path, "records", len(a.docs))
	return nil
}

// --- JSONL Archive ---

// JSONLArchive appends one JSON document per line as records arrive.
type JSONLArchive struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLArchive creates a JSONL file archive. An existing file is
// appended to.
func NewJSONLArchive(outputPath string, logger *slog.Logger) (*JSONLArchive, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	return &JSONLArchive{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_archive"),
	}, nil
}

func (a *JSONLArchive) Name() string { return "jsonl" }

func (a *JSONLArchive) Store(_ context.Context, records []stepsheet.DanceRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range records {
		doc, err := Document(r, now())
		if err != nil {
			return err
		}
		if err := a.enc.Encode(doc); err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
		a.count++
	}
	return nil
}

func (a *JSONLArchive) Close() error {
	a.logger.Info("JSONL written", "path", a.path, "records", a.count)
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// --- CSV Archive ---

// csvHeader is the fixed column order of the CSV archive.
var csvHeader = []string{
	"url", "sheet_id", "timestamp", "dance_name", "title", "choreographers",
	"release_date", "count", "wall", "level", "song_title", "song_artist", "songs", "steps",
}

// CSVArchive writes one flattened row per record.
type CSVArchive struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVArchive creates a CSV file archive and writes the header row.
func NewCSVArchive(outputPath string, logger *slog.Logger) (*CSVArchive, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}

	return &CSVArchive{
		path:   outputPath,
		file:   f,
		writer: w,
		logger: logger.With("component", "csv_archive"),
	}, nil
}

func (a *CSVArchive) Name() string { return "csv" }

func (a *CSVArchive) Store(_ context.Context, records []stepsheet.DanceRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range records {
		if err := a.writer.Write(csvRow(r, now())); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
		a.count++
	}

	a.writer.Flush()
	return a.writer.Error()
}

func (a *CSVArchive) Close() error {
	a.logger.Info("CSV written", "path", a.path, "records", a.count)
	if a.writer != nil {
		a.writer.Flush()
	}
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// csvRow flattens a record. Choreographers render as "Name (Country)" and
// lists are joined with " | ".
func csvRow(r stepsheet.DanceRecord, ts time.Time) []string {
	choreographers := make([]string, 0, len(r.Choreographers))
	for _, c := range r.Choreographers {
		if c.Country != "" {
			choreographers = append(choreographers, fmt.Sprintf("%s (%s)", c.Name, c.Country))
		} else {
			choreographers = append(choreographers, c.Name)
		}
	}

	songs := make([]string, 0, len(r.Songs))
	for _, s := range r.Songs {
		if s.Artist != "" {
			songs = append(songs, s.Title+" - "+s.Artist)
		} else {
			songs = append(songs, s.Title)
		}
	}

	steps := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, strings.TrimSpace(s.Number+" "+s.Description))
	}

	primary := r.PrimarySong()
	return []string{
		r.URL,
		r.SheetID,
		ts.UTC().Format(time.RFC3339),
		r.DanceName,
		r.Title,
		strings.Join(choreographers, " | "),
		r.ReleaseDate,
		r.Count,
		r.Wall,
		r.Level,
		primary.Title,
		primary.Artist,
		strings.Join(songs, " | "),
		strings.Join(steps, " | "),
	}
}

// NewFileArchive creates the file archive for kind inside outputDir.
func NewFileArchive(kind, outputDir string, logger *slog.Logger) (Archive, error) {
	switch kind {
	case "json":
		return NewJSONArchive(filepath.Join(outputDir, "stepsheets.json"), logger)
	case "jsonl":
		return NewJSONLArchive(filepath.Join(outputDir, "stepsheets.jsonl"), logger)
	case "csv":
		return NewCSVArchive(filepath.Join(outputDir, "stepsheets.csv"), logger)
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", kind)
	}
}
