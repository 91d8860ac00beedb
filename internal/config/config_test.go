package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 15*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, "exact", cfg.Import.SongIdentity)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Fetcher.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.Fetcher.MaxRetries = -1 }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "oracle" }},
		{"empty dsn", func(c *Config) { c.Store.DSN = "" }},
		{"song identity", func(c *Config) { c.Import.SongIdentity = "fuzzy" }},
		{"archive type", func(c *Config) { c.Archive.Type = "xml" }},
		{"mongo without uri", func(c *Config) { c.Archive.Type = "mongodb" }},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"no name anchors", func(c *Config) {
			c.Selectors.Name = nil
			c.Selectors.MetaTitle = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dancedb.yaml")
	content := `
fetcher:
  timeout: 5s
store:
  dsn: /tmp/custom.sqlite3
import:
  song_identity: normalized
selectors:
  name: [".title"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, "/tmp/custom.sqlite3", cfg.Store.DSN)
	assert.Equal(t, "normalized", cfg.Import.SongIdentity)
	assert.Equal(t, []string{".title"}, cfg.Selectors.Name)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultSelectors().Music, cfg.Selectors.Music)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DANCEDB_STORE_DSN", "/tmp/env.sqlite3")
	path := filepath.Join(t.TempDir(), "dancedb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.sqlite3", cfg.Store.DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://www.copperknob.co.uk/stepsheets/34792/power-jam"))
	assert.Error(t, ValidateURL("ftp://example.com/file"))
	assert.Error(t, ValidateURL("https://"))
}

func TestArchiveTypes(t *testing.T) {
	assert.Nil(t, ArchiveConfig{Type: "none"}.Types())
	assert.Equal(t, []string{"jsonl", "csv"}, ArchiveConfig{Type: "jsonl, csv"}.Types())

	cfg := DefaultConfig()
	cfg.Archive.Type = "json,xml"
	assert.Error(t, Validate(cfg))

	cfg.Archive.Type = "json,mongodb"
	assert.Error(t, Validate(cfg))
	cfg.Archive.MongoURI = "mongodb://localhost:27017"
	assert.NoError(t, Validate(cfg))
}
