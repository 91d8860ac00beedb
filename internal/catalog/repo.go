package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/dancedb/dancedb/internal/types"
)

// Repo runs catalog statements against a database or a transaction.
type Repo struct {
	db      bun.IDB
	backend string
}

func newRepo(db bun.IDB, backend string) *Repo {
	return &Repo{db: db, backend: backend}
}

// ListFilter narrows ListDances. Empty fields match everything.
type ListFilter struct {
	KnownStatus KnownStatus
	Category    Category
	Priority    Priority
	Action      Action
	Name        string // substring, case-insensitive
}

// AddDance validates and inserts a dance, setting its ID.
func (r *Repo) AddDance(ctx context.Context, d *Dance) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return r.InsertDance(ctx, d)
}

// InsertDance inserts a dance without curation checks, setting its ID.
func (r *Repo) InsertDance(ctx context.Context, d *Dance) error {
	if strings.TrimSpace(d.Name) == "" {
		return types.ErrMissingName
	}
	if _, err := r.db.NewInsert().Model(d).Exec(ctx); err != nil {
		return storageErr(r.backend, "insert dance", err)
	}
	return nil
}

// GetDance returns the dance with the given id and its songs.
func (r *Repo) GetDance(ctx context.Context, id int64) (*Dance, error) {
	d := new(Dance)
	err := r.db.NewSelect().Model(d).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dance %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr(r.backend, "get dance", err)
	}

	if d.Songs, err = r.SongsForDance(ctx, id); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDance validates and saves every column of d.
func (r *Repo) UpdateDance(ctx context.Context, d *Dance) error {
	if err := d.Validate(); err != nil {
		return err
	}
	res, err := r.db.NewUpdate().Model(d).WherePK().Exec(ctx)
	if err != nil {
		return storageErr(r.backend, "update dance", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dance %d: %w", d.ID, types.ErrNotFound)
	}
	return nil
}

// DeleteDance removes a dance and its song links. Songs are kept.
func (r *Repo) DeleteDance(ctx context.Context, id int64) error {
	if _, err := r.db.NewDelete().Model((*DanceSong)(nil)).Where("dance_id = ?", id).Exec(ctx); err != nil {
		return storageErr(r.backend, "delete links", err)
	}
	res, err := r.db.NewDelete().Model((*Dance)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return storageErr(r.backend, "delete dance", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dance %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// ListDances returns the dances matching f ordered by name, each with its
// songs.
func (r *Repo) ListDances(ctx context.Context, f ListFilter) ([]Dance, error) {
	var dances []Dance
	q := r.db.NewSelect().Model(&dances).OrderExpr("d.name ASC, d.id ASC")
	if f.KnownStatus != "" {
		q = q.Where("d.known_status = ?", f.KnownStatus)
	}
	if f.Category != "" {
		q = q.Where("d.category = ?", f.Category)
	}
	if f.Priority != "" {
		q = q.Where("d.priority = ?", f.Priority)
	}
	if f.Action != "" {
		q = q.Where("d.action = ?", f.Action)
	}
	if f.Name != "" {
		q = q.Where("LOWER(d.name) LIKE ?", "%"+strings.ToLower(f.Name)+"%")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, storageErr(r.backend, "list dances", err)
	}

	for i := range dances {
		songs, err := r.SongsForDance(ctx, dances[i].ID)
		if err != nil {
			return nil, err
		}
		dances[i].Songs = songs
	}
	return dances, nil
}

// FindDanceByURL returns the first dance with the given stepsheet URL, or
// nil if there is none.
func (r *Repo) FindDanceByURL(ctx context.Context, stepsheetURL string) (*Dance, error) {
	d := new(Dance)
	err := r.db.NewSelect().
		Model(d).
		Where("d.stepsheet_url = ?", stepsheetURL).
		OrderExpr("d.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(r.backend, "find dance", err)
	}
	return d, nil
}

// DanceIDByNameAndChoreographer returns the id of the first dance with the
// given name and flattened choreographer string.
func (r *Repo) DanceIDByNameAndChoreographer(ctx context.Context, name, choreographer string) (int64, error) {
	var id int64
	err := r.db.NewSelect().
		Model((*Dance)(nil)).
		ColumnExpr("d.id").
		Where("d.name = ?", name).
		Where("d.choreographer = ?", choreographer).
		OrderExpr("d.id ASC").
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("dance %q by %q: %w", name, choreographer, types.ErrNotFound)
	}
	if err != nil {
		return 0, storageErr(r.backend, "find dance id", err)
	}
	return id, nil
}

// FindSong returns the first song whose title matches, or nil.
func (r *Repo) FindSong(ctx context.Context, title string, match SongMatch) (*Song, error) {
	if match == SongMatchNormalized {
		return r.findSongNormalized(ctx, title)
	}

	s := new(Song)
	err := r.db.NewSelect().
		Model(s).
		Where("s.title = ?", title).
		OrderExpr("s.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(r.backend, "find song", err)
	}
	return s, nil
}

// findSongNormalized compares titles in Go since SQL has no portable
// Unicode case folding.
func (r *Repo) findSongNormalized(ctx context.Context, title string) (*Song, error) {
	want := NormalizeTitle(title)

	var songs []Song
	if err := r.db.NewSelect().Model(&songs).OrderExpr("s.id ASC").Scan(ctx); err != nil {
		return nil, storageErr(r.backend, "find song", err)
	}
	for i := range songs {
		if NormalizeTitle(songs[i].Title) == want {
			return &songs[i], nil
		}
	}
	return nil, nil
}

// InsertSong inserts a song, setting its ID.
func (r *Repo) InsertSong(ctx context.Context, s *Song) error {
	if _, err := r.db.NewInsert().Model(s).Exec(ctx); err != nil {
		return storageErr(r.backend, "insert song", err)
	}
	return nil
}

// FindOrCreateSong returns the song matching title, inserting it when
// missing. created reports whether a row was inserted.
func (r *Repo) FindOrCreateSong(ctx context.Context, title string, match SongMatch) (song *Song, created bool, err error) {
	song, err = r.FindSong(ctx, title, match)
	if err != nil || song != nil {
		return song, false, err
	}

	song = &Song{Title: title}
	if err := r.InsertSong(ctx, song); err != nil {
		return nil, false, err
	}
	return song, true, nil
}

// LinkDanceSong inserts a dance-song link without checking for an
// existing one.
func (r *Repo) LinkDanceSong(ctx context.Context, danceID, songID int64) error {
	link := &DanceSong{DanceID: danceID, SongID: songID}
	if _, err := r.db.NewInsert().Model(link).Exec(ctx); err != nil {
		return storageErr(r.backend, "link song", err)
	}
	return nil
}

// LinkExists reports whether a link for the pair exists.
func (r *Repo) LinkExists(ctx context.Context, danceID, songID int64) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*DanceSong)(nil)).
		Where("dance_id = ?", danceID).
		Where("song_id = ?", songID).
		Exists(ctx)
	if err != nil {
		return false, storageErr(r.backend, "check link", err)
	}
	return ok, nil
}

// SongsForDance returns the songs linked to a dance in link order.
func (r *Repo) SongsForDance(ctx context.Context, danceID int64) ([]Song, error) {
	songs := []Song{}
	err := r.db.NewSelect().
		Model(&songs).
		Join("JOIN dance_songs AS ds ON ds.song_id = s.id").
		Where("ds.dance_id = ?", danceID).
		OrderExpr("ds.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageErr(r.backend, "songs for dance", err)
	}
	return songs, nil
}

// ListSongs returns every song ordered by title.
func (r *Repo) ListSongs(ctx context.Context) ([]Song, error) {
	songs := []Song{}
	if err := r.db.NewSelect().Model(&songs).OrderExpr("s.title ASC, s.id ASC").Scan(ctx); err != nil {
		return nil, storageErr(r.backend, "list songs", err)
	}
	return songs, nil
}

// NormalizeTitle folds case, applies NFC and collapses whitespace.
func NormalizeTitle(title string) string {
	title = norm.NFC.String(title)
	return cases.Fold().String(strings.Join(strings.Fields(title), " "))
}

func storageErr(backend, op string, err error) error {
	return &types.StorageError{Backend: backend, Op: op, Err: err}
}
