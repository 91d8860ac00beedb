package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.StoreConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "data", "dance_db.sqlite3"),
	}
	s, err := Open(context.Background(), cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSchema(ctx))

	for _, table := range []string{"dances", "songs", "dance_songs", "song_artists", "song_tags", "song_sources", "sources"} {
		var n int
		err := s.DB().NewRaw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(ctx, &n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestDanceCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d := &Dance{
		Name:          "Power Jam",
		Choreographer: "Kathi Stringer",
		Count:         "22",
		Wall:          "4",
		Level:         "Beginner",
		KnownStatus:   KnownKinda,
		Category:      CategoryLearnNext,
		Priority:      PriorityHigh,
		Action:        ActionPractice,
	}
	require.NoError(t, s.AddDance(ctx, d))
	require.NotZero(t, d.ID)

	got, err := s.GetDance(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Power Jam", got.Name)
	assert.Equal(t, KnownKinda, got.KnownStatus)
	assert.Empty(t, got.Songs)

	got.Notes = "watch the turn on 16"
	got.KnownStatus = KnownOnTheFloor
	require.NoError(t, s.UpdateDance(ctx, got))

	again, err := s.GetDance(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "watch the turn on 16", again.Notes)
	assert.Equal(t, KnownOnTheFloor, again.KnownStatus)

	require.NoError(t, s.DeleteDance(ctx, d.ID))
	_, err = s.GetDance(ctx, d.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDance(ctx, d.ID), types.ErrNotFound)
}

func TestAddDanceValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.AddDance(ctx, &Dance{Name: "  "}), types.ErrMissingName)
	assert.Error(t, s.AddDance(ctx, &Dance{Name: "X", Priority: "Urgent"}))
	assert.Error(t, s.AddDance(ctx, &Dance{Name: "X", KnownStatus: "Maybe"}))
	assert.Error(t, s.AddDance(ctx, &Dance{Name: "X", Category: "Someday"}))
	assert.Error(t, s.AddDance(ctx, &Dance{Name: "X", Action: "Teach"}))
}

func TestUpdateMissingDance(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateDance(context.Background(), &Dance{ID: 999, Name: "Ghost"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSongsForDanceAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d := &Dance{Name: "Countdown", Choreographer: "Jane Doe, John Smith"}
	require.NoError(t, s.InsertDance(ctx, d))

	a, created, err := s.FindOrCreateSong(ctx, "Song A", SongMatchExact)
	require.NoError(t, err)
	assert.True(t, created)
	b, _, err := s.FindOrCreateSong(ctx, "Song B", SongMatchExact)
	require.NoError(t, err)

	require.NoError(t, s.LinkDanceSong(ctx, d.ID, a.ID))
	require.NoError(t, s.LinkDanceSong(ctx, d.ID, b.ID))

	songs, err := s.SongsForDance(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "Song A", songs[0].Title)
	assert.Equal(t, "Song B", songs[1].Title)

	ok, err := s.LinkExists(ctx, d.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteDance(ctx, d.ID))

	ok, err = s.LinkExists(ctx, d.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.ListSongs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "songs survive dance deletion")
}

func TestFindOrCreateSongExact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, created, err := s.FindOrCreateSong(ctx, "Countdown", SongMatchExact)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := s.FindOrCreateSong(ctx, "Countdown", SongMatchExact)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	other, created, err := s.FindOrCreateSong(ctx, "countdown", SongMatchExact)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestFindOrCreateSongNormalized(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, _, err := s.FindOrCreateSong(ctx, "Café  del Mar", SongMatchNormalized)
	require.NoError(t, err)

	// decomposed é, different case, extra spaces
	again, created, err := s.FindOrCreateSong(ctx, " CAFE\u0301 DEL   MAR ", SongMatchNormalized)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestDanceLookups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d := &Dance{Name: "Power Jam", Choreographer: "Kathi Stringer", StepsheetURL: "https://www.copperknob.co.uk/stepsheets/34792/power-jam"}
	require.NoError(t, s.InsertDance(ctx, d))

	id, err := s.DanceIDByNameAndChoreographer(ctx, "Power Jam", "Kathi Stringer")
	require.NoError(t, err)
	assert.Equal(t, d.ID, id)

	_, err = s.DanceIDByNameAndChoreographer(ctx, "Power Jam", "Someone Else")
	assert.ErrorIs(t, err, types.ErrNotFound)

	found, err := s.FindDanceByURL(ctx, d.StepsheetURL)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, d.ID, found.ID)

	missing, err := s.FindDanceByURL(ctx, "https://example.com/none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListDancesFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddDance(ctx, &Dance{Name: "Zydeco", Category: CategoryLearnSoon}))
	require.NoError(t, s.AddDance(ctx, &Dance{Name: "Alpha", Category: CategoryLearnNext}))
	require.NoError(t, s.AddDance(ctx, &Dance{Name: "Beta", Category: CategoryLearnNext, Priority: PriorityLow}))

	all, err := s.ListDances(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alpha", all[0].Name)

	next, err := s.ListDances(ctx, ListFilter{Category: CategoryLearnNext})
	require.NoError(t, err)
	assert.Len(t, next, 2)

	byName, err := s.ListDances(ctx, ListFilter{Name: "zyd"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Zydeco", byName[0].Name)
}

func TestRunInTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RunInTx(ctx, func(ctx context.Context, repo *Repo) error {
		if err := repo.InsertDance(ctx, &Dance{Name: "Rolled Back"}); err != nil {
			return err
		}
		return types.ErrMissingName
	})
	require.ErrorIs(t, err, types.ErrMissingName)

	all, err := s.ListDances(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, NormalizeTitle("Café del Mar"), NormalizeTitle("  CAFE\u0301   del mar"))
	assert.NotEqual(t, NormalizeTitle("Countdown"), NormalizeTitle("Count Down"))
}
