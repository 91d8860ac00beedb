package catalog

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/dancedb/dancedb/internal/types"
)

// Dance is a persisted dance with the user's curation fields.
type Dance struct {
	bun.BaseModel `bun:"table:dances,alias:d"`

	ID            int64       `bun:"id,pk,autoincrement" json:"id"`
	Name          string      `bun:"name,notnull" json:"name"`
	Choreographer string      `bun:"choreographer,notnull,default:''" json:"choreographer"`
	ReleaseDate   string      `bun:"release_date,notnull,default:''" json:"release_date"`
	Level         string      `bun:"level,notnull,default:''" json:"level"`
	Count         string      `bun:"count,notnull,default:''" json:"count"`
	Wall          string      `bun:"wall,notnull,default:''" json:"wall"`
	Tag           string      `bun:"tag,notnull,default:''" json:"tag"`
	Restart       string      `bun:"restart,notnull,default:''" json:"restart"`
	StepsheetURL  string      `bun:"stepsheet_url,notnull,default:''" json:"stepsheet_url"`
	KnownStatus   KnownStatus `bun:"known_status,notnull,default:''" json:"known_status"`
	Category      Category    `bun:"category,notnull,default:''" json:"category"`
	Priority      Priority    `bun:"priority,notnull,default:''" json:"priority"`
	Action        Action      `bun:"action,notnull,default:''" json:"action"`
	Notes         string      `bun:"notes,notnull,default:''" json:"notes"`

	Songs []Song `bun:"-" json:"songs,omitempty"`
}

// Validate checks the required name and the curation enums.
func (d *Dance) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return types.ErrMissingName
	}
	if !d.KnownStatus.IsValid() {
		return fmt.Errorf("invalid known status %q", d.KnownStatus)
	}
	if !d.Category.IsValid() {
		return fmt.Errorf("invalid category %q", d.Category)
	}
	if !d.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q", d.Priority)
	}
	if !d.Action.IsValid() {
		return fmt.Errorf("invalid action %q", d.Action)
	}
	return nil
}

// Song is a persisted song, unique by title.
type Song struct {
	bun.BaseModel `bun:"table:songs,alias:s"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Title      string `bun:"title,notnull" json:"title"`
	BPM        *int   `bun:"bpm" json:"bpm,omitempty"`
	Genre      string `bun:"genre,notnull,default:''" json:"genre,omitempty"`
	SpotifyURL string `bun:"spotify_url,notnull,default:''" json:"spotify_url,omitempty"`
	Notes      string `bun:"notes,notnull,default:''" json:"notes,omitempty"`
}

// DanceSong links a dance to a song.
type DanceSong struct {
	bun.BaseModel `bun:"table:dance_songs,alias:ds"`

	ID      int64 `bun:"id,pk,autoincrement"`
	DanceID int64 `bun:"dance_id,notnull"`
	SongID  int64 `bun:"song_id,notnull"`
}

// SongArtist is reserved for per-artist credits; the pipeline does not
// populate it.
type SongArtist struct {
	bun.BaseModel `bun:"table:song_artists"`

	SongID     int64  `bun:"song_id,pk"`
	ArtistName string `bun:"artist_name,pk"`
}

// SongTag is reserved for song tagging.
type SongTag struct {
	bun.BaseModel `bun:"table:song_tags"`

	SongID int64  `bun:"song_id,pk"`
	Tag    string `bun:"tag,pk"`
}

// Source is reserved for song provenance.
type Source struct {
	bun.BaseModel `bun:"table:sources"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
	URL  string `bun:"url,notnull,default:''"`
	Type string `bun:"type,notnull,default:''"`
}

// SongSource links a song to a Source.
type SongSource struct {
	bun.BaseModel `bun:"table:song_sources"`

	SongID   int64 `bun:"song_id,pk"`
	SourceID int64 `bun:"source_id,pk"`
}

// models lists every table in creation order.
var models = []any{
	(*Dance)(nil),
	(*Song)(nil),
	(*DanceSong)(nil),
	(*SongArtist)(nil),
	(*SongTag)(nil),
	(*Source)(nil),
	(*SongSource)(nil),
}
