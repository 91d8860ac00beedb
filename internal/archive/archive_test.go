package archive

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/stepsheet"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func init() {
	now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
}

func sampleRecord() stepsheet.DanceRecord {
	return stepsheet.DanceRecord{
		URL:       "https://www.copperknob.co.uk/stepsheets/12345/countdown",
		SheetID:   "12345",
		DanceName: "Countdown",
		Title:     "Countdown - Jane Doe (USA) & John Smith (UK) - October 2019",
		Choreographers: []stepsheet.Choreographer{
			{Name: "Jane Doe", Country: "USA"},
			{Name: "John Smith"},
		},
		ReleaseDate: "October 2019",
		Count:       "32",
		Wall:        "4",
		Level:       "Improver",
		Songs: []stepsheet.Song{
			{Title: "Song A", Artist: "Artist A"},
			{Title: "Song B"},
		},
		Steps: []stepsheet.Step{
			{Section: "S1", Number: "1-2", Description: "Walk R, L"},
		},
	}
}

func TestDocument(t *testing.T) {
	doc, err := Document(sampleRecord(), now())
	require.NoError(t, err)

	assert.Equal(t, "https://www.copperknob.co.uk/stepsheets/12345/countdown", doc["_url"])
	assert.Equal(t, "12345", doc["_sheet_id"])
	assert.Equal(t, now(), doc["_timestamp"])
	assert.Equal(t, "Countdown", doc["danceName"])
	assert.Equal(t, "Song A", doc["songTitle"])
	assert.Equal(t, "Artist A", doc["songArtist"])
	assert.Len(t, doc["songs"], 2)
}

func TestJSONArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "stepsheets.json")
	a, err := NewJSONArchive(path, testLogger)
	require.NoError(t, err)

	require.NoError(t, a.Store(context.Background(), []stepsheet.DanceRecord{sampleRecord(), sampleRecord()}))
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(data, &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "12345", docs[0]["_sheet_id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", docs[0]["_timestamp"])
}

func TestJSONLArchiveAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepsheets.jsonl")

	for i := 0; i < 2; i++ {
		a, err := NewJSONLArchive(path, testLogger)
		require.NoError(t, err)
		require.NoError(t, a.Store(context.Background(), []stepsheet.DanceRecord{sampleRecord()}))
		require.NoError(t, a.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var doc map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &doc))
		assert.Equal(t, "Countdown", doc["danceName"])
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestCSVArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepsheets.csv")
	a, err := NewCSVArchive(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, a.Store(context.Background(), []stepsheet.DanceRecord{sampleRecord()}))
	require.NoError(t, a.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])

	row := map[string]string{}
	for i, h := range rows[0] {
		row[h] = rows[1][i]
	}
	assert.Equal(t, "12345", row["sheet_id"])
	assert.Equal(t, "Jane Doe (USA) | John Smith", row["choreographers"])
	assert.Equal(t, "Song A - Artist A | Song B", row["songs"])
	assert.Equal(t, "Song A", row["song_title"])
	assert.Equal(t, "1-2 Walk R, L", row["steps"])
	assert.Equal(t, "2024-03-01T12:00:00Z", row["timestamp"])
}

type failingArchive struct {
	stored int
	closed bool
	err    error
}

func (f *failingArchive) Store(_ context.Context, records []stepsheet.DanceRecord) error {
	f.stored += len(records)
	return f.err
}
func (f *failingArchive) Close() error { f.closed = true; return nil }
func (f *failingArchive) Name() string { return "stub" }

func TestMultiArchiveTriesEveryBackend(t *testing.T) {
	boom := errors.New("boom")
	first := &failingArchive{err: boom}
	second := &failingArchive{}

	m := NewMultiArchive([]Archive{first, second}, testLogger)
	err := m.Store(context.Background(), []stepsheet.DanceRecord{sampleRecord()})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.stored)
	assert.Equal(t, 1, second.stored)

	require.NoError(t, m.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, config.ArchiveConfig{Type: "none"}, testLogger)
	require.NoError(t, err)
	assert.Nil(t, a)

	dir := t.TempDir()
	a, err = New(ctx, config.ArchiveConfig{Type: "jsonl", OutputPath: dir}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "jsonl", a.Name())
	require.NoError(t, a.Close())

	a, err = New(ctx, config.ArchiveConfig{Type: "json,csv", OutputPath: dir}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "multi", a.Name())
	require.NoError(t, a.Close())
	assert.FileExists(t, filepath.Join(dir, "stepsheets.json"))
	assert.FileExists(t, filepath.Join(dir, "stepsheets.csv"))

	_, err = New(ctx, config.ArchiveConfig{Type: "xml", OutputPath: dir}, testLogger)
	assert.Error(t, err)
}
