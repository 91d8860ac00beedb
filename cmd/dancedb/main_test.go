package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dancedb/dancedb/internal/catalog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DANCEDB_LOGGING_LEVEL", "error")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "DanceDB")
}

func TestConfigPrintsYAML(t *testing.T) {
	out, err := run(t, "config", "--db", "/tmp/x.sqlite3")
	require.NoError(t, err)
	assert.Contains(t, out, "dsn: /tmp/x.sqlite3")
	assert.Contains(t, out, "song_identity: exact")
}

func TestDanceLifecycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "dance_db.sqlite3")

	out, err := run(t, "dance", "add", "--db", db,
		"--name", "Power Jam", "--choreographer", "Kathi Stringer",
		"--category", "Learn Next", "--song", "Power Jam")
	require.NoError(t, err)
	assert.Contains(t, out, "Added dance 1: Power Jam")

	_, err = run(t, "dance", "edit", "1", "--db", db, "--known", "Kinda", "--notes", "turns")
	require.NoError(t, err)

	out, err = run(t, "dance", "list", "--db", db, "--json", "--category", "Learn Next")
	require.NoError(t, err)
	var dances []catalog.Dance
	require.NoError(t, json.Unmarshal([]byte(out), &dances))
	require.Len(t, dances, 1)
	assert.Equal(t, catalog.KnownKinda, dances[0].KnownStatus)
	assert.Equal(t, "turns", dances[0].Notes)
	require.Len(t, dances[0].Songs, 1)

	out, err = run(t, "dance", "find", "--db", db, "--name", "Power Jam", "--choreographer", "Kathi Stringer")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = run(t, "dance", "edit", "1", "--db", db, "--priority", "Urgent")
	assert.Error(t, err)

	_, err = run(t, "dance", "delete", "1", "--db", db)
	require.NoError(t, err)
	_, err = run(t, "dance", "show", "1", "--db", db)
	assert.Error(t, err)
}

func TestLinksCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "dance_db.sqlite3")
	csvPath := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Stepsheet Link,Dance Name,Song Name,Trash,Choreographers,Level,Counts\n"+
			"https://www.copperknob.co.uk/stepsheets/1/a,Dance A,Countdown,,,Beginner,32\n"+
			"https://www.copperknob.co.uk/stepsheets/2/b,Dance B,Countdown,,,,\n"+
			"https://www.copperknob.co.uk/stepsheets/3/c,Dance C,Other,,,,\n",
	), 0o644))

	out, err := run(t, "links", csvPath, "--db", db, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 2 rows")
	assert.Contains(t, out, "Dances: 2 new, 0 existing")
	assert.Contains(t, out, "Songs:  1 new, 1 existing")

	out, err = run(t, "links", csvPath, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Links:  1 new, 2 already present")
}

func TestImportRequiresURLs(t *testing.T) {
	_, err := run(t, "import", "--db", filepath.Join(t.TempDir(), "db.sqlite3"))
	assert.Error(t, err)

	_, err = run(t, "scrape", "not a url")
	assert.Error(t, err)
}
