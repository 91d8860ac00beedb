package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller after Load returns.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("DANCEDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dancedb")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".dancedb"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so that env overrides
// resolve for keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.cloudflare_bypass", cfg.Fetcher.CloudflareBypass)

	v.SetDefault("browser.enabled", cfg.Browser.Enabled)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.timeout", cfg.Browser.Timeout)

	v.SetDefault("selectors.name", cfg.Selectors.Name)
	v.SetDefault("selectors.count", cfg.Selectors.Count)
	v.SetDefault("selectors.wall", cfg.Selectors.Wall)
	v.SetDefault("selectors.level", cfg.Selectors.Level)
	v.SetDefault("selectors.choreographer", cfg.Selectors.Choreographer)
	v.SetDefault("selectors.music", cfg.Selectors.Music)
	v.SetDefault("selectors.steps", cfg.Selectors.Steps)
	v.SetDefault("selectors.meta_title", cfg.Selectors.MetaTitle)
	v.SetDefault("selectors.meta_description", cfg.Selectors.MetaDescription)

	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.dsn", cfg.Store.DSN)
	v.SetDefault("store.debug", cfg.Store.Debug)

	v.SetDefault("import.song_identity", cfg.Import.SongIdentity)
	v.SetDefault("import.delay", cfg.Import.Delay)

	v.SetDefault("archive.type", cfg.Archive.Type)
	v.SetDefault("archive.output_path", cfg.Archive.OutputPath)
	v.SetDefault("archive.mongo_uri", cfg.Archive.MongoURI)
	v.SetDefault("archive.mongo_database", cfg.Archive.MongoDatabase)
	v.SetDefault("archive.mongo_collection", cfg.Archive.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)
}
