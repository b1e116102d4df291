package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// PostgresOptions tunes the PostgreSQL pool.
type PostgresOptions struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	Logger          *slog.Logger
}

// OpenPostgres opens a lib/pq pool and waits until the server answers,
// retrying transient connection failures.
func OpenPostgres(ctx context.Context, url string, opts PostgresOptions) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ferrors.ConfigError("database url is empty", nil).
			WithSuggestion("Set DATABASE_URL or database.url in frivillig.yaml")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeDatabaseUnavailable, "open postgres", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	retry := ferrors.DefaultRetryConfig()
	retry.MaxRetries = max(opts.ConnectRetries, 0)
	retry.ShouldRetry = func(error) bool { return true }

	attempt := 0
	err = ferrors.Retry(ctx, retry, func() error {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn("postgres not reachable", "attempt", attempt, "error", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, ferrors.New(ferrors.ErrCodeDatabaseUnavailable, "postgres not reachable", err).
			WithSuggestion("Check DATABASE_URL and that the server is running")
	}
	return db, nil
}

// OpenSQLite opens (creating if needed) a SQLite database with the
// organizations schema. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	memory := path == ":memory:" || path == ""
	if memory {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeDatabaseUnavailable, "open sqlite", err)
	}

	// Every connection to :memory: is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-16000",
		"PRAGMA temp_store=MEMORY",
	}
	if !memory {
		pragmas = append([]string{"PRAGMA journal_mode=WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, ferrors.New(ferrors.ErrCodeDatabaseUnavailable, fmt.Sprintf("sqlite %s", p), err)
		}
	}

	if err := InitSchema(ctx, db, SQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
