package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Fetcher.RetryDelay < 0 {
		return fmt.Errorf("fetcher.retry_delay must be >= 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Browser.Enabled && cfg.Browser.Timeout <= 0 {
		return fmt.Errorf("browser.timeout must be > 0 when the browser is enabled")
	}

	if len(cfg.Selectors.Name) == 0 && len(cfg.Selectors.MetaTitle) == 0 {
		return fmt.Errorf("selectors.name or selectors.meta_title must list at least one anchor")
	}

	switch cfg.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be 'sqlite' or 'postgres', got %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn must not be empty")
	}

	if cfg.Import.SongIdentity != "exact" && cfg.Import.SongIdentity != "normalized" {
		return fmt.Errorf("import.song_identity must be 'exact' or 'normalized', got %q", cfg.Import.SongIdentity)
	}
	if cfg.Import.Delay < 0 {
		return fmt.Errorf("import.delay must be >= 0")
	}

	validArchiveTypes := map[string]bool{
		"none": true, "json": true, "jsonl": true, "csv": true, "mongodb": true,
	}
	for _, t := range strings.Split(cfg.Archive.Type, ",") {
		t = strings.TrimSpace(t)
		if !validArchiveTypes[t] {
			return fmt.Errorf("archive.type %q is not supported (valid: none, json, jsonl, csv, mongodb)", t)
		}
		if t == "mongodb" && cfg.Archive.MongoURI == "" {
			return fmt.Errorf("archive.mongo_uri is required for the mongodb archive")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is a fetchable stepsheet address.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
