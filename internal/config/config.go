package config

import (
	"strings"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for DanceDB.
type Config struct {
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Selectors SelectorConfig  `mapstructure:"selectors" yaml:"selectors"`
	Store     StoreConfig     `mapstructure:"store"     yaml:"store"`
	Import    ImportConfig    `mapstructure:"import"    yaml:"import"`
	Archive   ArchiveConfig   `mapstructure:"archive"   yaml:"archive"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"       yaml:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"       yaml:"retry_delay"`
	UserAgents       []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	FollowRedirects  bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects     int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize      int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	CloudflareBypass bool          `mapstructure:"cloudflare_bypass" yaml:"cloudflare_bypass"`
}

// BrowserConfig controls the headless browser used when a page is blocked.
type BrowserConfig struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Headless bool          `mapstructure:"headless" yaml:"headless"`
	Stealth  bool          `mapstructure:"stealth"  yaml:"stealth"`
	Bin      string        `mapstructure:"bin"      yaml:"bin"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

// SelectorConfig lists the structural anchors used to locate stepsheet
// fields. Each field is tried in order; the first non-empty match wins.
type SelectorConfig struct {
	Name            []string `mapstructure:"name"             yaml:"name"`
	Count           []string `mapstructure:"count"            yaml:"count"`
	Wall            []string `mapstructure:"wall"             yaml:"wall"`
	Level           []string `mapstructure:"level"            yaml:"level"`
	Choreographer   []string `mapstructure:"choreographer"    yaml:"choreographer"`
	Music           []string `mapstructure:"music"            yaml:"music"`
	Steps           []string `mapstructure:"steps"            yaml:"steps"`
	MetaTitle       []string `mapstructure:"meta_title"       yaml:"meta_title"`       // xpath, value read from @content
	MetaDescription string   `mapstructure:"meta_description" yaml:"meta_description"` // xpath, value read from @content
}

// StoreConfig controls the relational catalog.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite, postgres
	DSN    string `mapstructure:"dsn"    yaml:"dsn"`
	Debug  bool   `mapstructure:"debug"  yaml:"debug"`
}

// ImportConfig controls the batch importer.
type ImportConfig struct {
	SongIdentity string        `mapstructure:"song_identity" yaml:"song_identity"` // exact, normalized
	Delay        time.Duration `mapstructure:"delay"         yaml:"delay"`
}

// ArchiveConfig controls where scraped records are archived.
type ArchiveConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // none, or a comma list of json, jsonl, csv, mongodb
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`
	Format     string `mapstructure:"format"       yaml:"format"`
	Output     string `mapstructure:"output"       yaml:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress"     yaml:"compress"`
}

// DefaultSelectors returns the anchors for the CopperKnob stepsheet layout.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Name:          []string{".sheethead .sheettitle", "h1.sheettitle"},
		Count:         []string{".sheetinfocount .sheetinfovalue", ".sheetinfocount"},
		Wall:          []string{".sheetinfowall .sheetinfovalue", ".sheetinfowall"},
		Level:         []string{".sheetinfolevel .sheetinfovalue", ".sheetinfolevel"},
		Choreographer: []string{".sheetinfochoreographer .sheetinfovalue", ".sheetinfochoreographer"},
		Music:         []string{".sheetinfomusic .sheetinfovalue", ".sheetinfomusic"},
		Steps:         []string{".sheetcontent", ".stepsheet"},
		MetaTitle: []string{
			"//meta[@name='title']",
			"//meta[@property='og:title']",
		},
		MetaDescription: "//meta[@name='description']",
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Timeout:    15 * time.Second,
			MaxRetries: 2,
			RetryDelay: 2 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			FollowRedirects:  true,
			MaxRedirects:     10,
			MaxBodySize:      5 * 1024 * 1024, // 5MB
			CloudflareBypass: true,
		},
		Browser: BrowserConfig{
			Enabled:  false,
			Headless: true,
			Stealth:  true,
			Timeout:  30 * time.Second,
		},
		Selectors: DefaultSelectors(),
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "data/dance_db.sqlite3",
		},
		Import: ImportConfig{
			SongIdentity: "exact",
			Delay:        500 * time.Millisecond,
		},
		Archive: ArchiveConfig{
			Type:            "none",
			OutputPath:      "./output",
			MongoDatabase:   "dancedb",
			MongoCollection: "stepsheets",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Types returns the configured archive backends, or nil for "none".
func (c ArchiveConfig) Types() []string {
	var out []string
	for _, t := range strings.Split(c.Type, ",") {
		if t = strings.TrimSpace(t); t != "" && t != "none" {
			out = append(out, t)
		}
	}
	return out
}
