// Package durable implements the durable structured cache tier on SQLite.
//
// One database holds three independent collections: generic cache entries,
// reading history indexed by owner and time, and artifact dedup records
// indexed by digest and producer. The schema is managed by embedded goose
// migrations, so opening an existing database is a no-op for the schema.
package durable

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the SQLite-backed durable tier.
type Store struct {
	db *sql.DB
}

// Counts reports the number of rows in each collection.
type Counts struct {
	Entries   int64
	Readings  int64
	Artifacts int64
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open durable db: %w", err)
	}
	// modernc connections are independent databases for :memory: and
	// contend on the write lock otherwise.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate durable db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(database.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Counts returns the row count of every collection.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM cache_entries),
		(SELECT COUNT(*) FROM readings),
		(SELECT COUNT(*) FROM artifacts)`,
	).Scan(&c.Entries, &c.Readings, &c.Artifacts)
	if err != nil {
		return Counts{}, fmt.Errorf("durable counts: %w", err)
	}
	return c, nil
}

// ClearAll empties all three collections in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("durable clear: %w", err)
	}
	for _, table := range []string{"cache_entries", "readings", "artifacts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("durable clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("durable clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
