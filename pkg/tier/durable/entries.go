package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pario-ai/tiercache/pkg/models"
)

// Get returns the generic entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (models.RawEntry, bool, error) {
	e := models.RawEntry{Key: key}
	var createdAt, expiresAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT value, created_at, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&e.Value, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RawEntry{}, false, nil
	}
	if err != nil {
		return models.RawEntry{}, false, fmt.Errorf("durable get: %w", err)
	}

	e.CreatedAt = fromNanos(createdAt)
	e.ExpiresAt = fromNanos(expiresAt)
	return e, true, nil
}

// Put inserts or replaces a generic entry.
func (s *Store) Put(ctx context.Context, e models.RawEntry) error {
	value := e.Value
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, value, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		e.Key, value, toNanos(e.CreatedAt), toNanos(e.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("durable put: %w", err)
	}
	return nil
}

// Delete removes a generic entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("durable delete: %w", err)
	}
	return nil
}

// Clear removes all generic entries. Readings and artifacts are kept.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("durable clear entries: %w", err)
	}
	return nil
}

// DeleteExpired removes generic entries that have expired at now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, toNanos(now))
	if err != nil {
		return 0, fmt.Errorf("durable delete expired: %w", err)
	}
	return res.RowsAffected()
}
