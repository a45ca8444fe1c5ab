package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pario-ai/tiercache/pkg/models"
)

// CacheReading appends rec to the durable reading history and returns the
// record's ID, generating one when rec.ID is empty.
func (e *Engine) CacheReading(ctx context.Context, rec models.ReadingRecord) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.durable == nil {
		return "", ErrStorageUnavailable
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = e.clock.Now()
	}
	if err := e.durable.AppendReading(ctx, rec); err != nil {
		return "", fmt.Errorf("cache reading %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// ReadingsByOwner returns up to limit readings for ownerID, newest first.
// It returns an empty slice when the durable tier is unavailable.
func (e *Engine) ReadingsByOwner(ctx context.Context, ownerID string, limit int) ([]models.ReadingRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.durable == nil || limit <= 0 {
		return []models.ReadingRecord{}, nil
	}
	recs, err := e.durable.ReadingsByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("readings for %s: %w", ownerID, err)
	}
	return recs, nil
}
