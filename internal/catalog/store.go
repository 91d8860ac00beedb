// Package catalog persists dances, songs and their links.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/dancedb/dancedb/internal/config"

	_ "modernc.org/sqlite"
)

// Store is the relational catalog. Its embedded Repo runs statements
// directly against the database; use RunInTx for multi-statement units.
type Store struct {
	*Repo
	db     *bun.DB
	logger *slog.Logger
}

// Open connects to the configured database and creates the schema if it
// does not exist yet.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	var db *bun.DB

	switch cfg.Driver {
	case "sqlite":
		sqldb, err := openSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case "postgres":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		sqldb.SetMaxOpenConns(10)
		sqldb.SetMaxIdleConns(5)
		sqldb.SetConnMaxLifetime(5 * time.Minute)
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, storageErr(cfg.Driver, "ping", err)
	}

	s := &Store{
		Repo:   newRepo(db, cfg.Driver),
		db:     db,
		logger: logger.With("component", "catalog"),
	}
	if err := s.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("catalog ready", "driver", cfg.Driver)
	return s, nil
}

// openSQLite opens a modernc SQLite database with a single connection so
// that pragmas apply to every statement.
func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("sqlite", "open", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqldb.ExecContext(ctx, pragma); err != nil {
			sqldb.Close()
			return nil, storageErr("sqlite", "pragma", fmt.Errorf("%s: %w", pragma, err))
		}
	}
	return sqldb, nil
}

// CreateSchema creates every table and index that does not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return storageErr(s.backend, "create table", err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*Song)(nil), "idx_songs_title", []string{"title"}},
		{(*Dance)(nil), "idx_dances_stepsheet_url", []string{"stepsheet_url"}},
		{(*Dance)(nil), "idx_dances_name", []string{"name"}},
		{(*DanceSong)(nil), "idx_dance_songs_pair", []string{"dance_id", "song_id"}},
	}
	for _, idx := range indexes {
		_, err := s.db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return storageErr(s.backend, "create index", err)
		}
	}
	return nil
}

// RunInTx runs fn inside a transaction. fn's Repo is bound to the
// transaction; returning an error rolls it back.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repo *Repo) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, newRepo(tx, s.backend))
	})
}

// DeleteDance removes a dance and its song links in one transaction.
func (s *Store) DeleteDance(ctx context.Context, id int64) error {
	return s.RunInTx(ctx, func(ctx context.Context, repo *Repo) error {
		return repo.DeleteDance(ctx, id)
	})
}

// DB returns the underlying bun database.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
