package durable

import (
	"context"
	"fmt"

	"github.com/pario-ai/tiercache/pkg/models"
)

// AppendReading stores a reading record. IDs must be unique.
func (s *Store) AppendReading(ctx context.Context, rec models.ReadingRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (id, owner_id, created_at, payload) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, toNanos(rec.CreatedAt), []byte(rec.Payload),
	)
	if err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	return nil
}

// ReadingsByOwner returns up to limit records for ownerID, newest first.
func (s *Store) ReadingsByOwner(ctx context.Context, ownerID string, limit int) ([]models.ReadingRecord, error) {
	if limit <= 0 {
		return []models.ReadingRecord{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, created_at, payload FROM readings
		 WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	records := []models.ReadingRecord{}
	for rows.Next() {
		var r models.ReadingRecord
		var createdAt int64
		var payload []byte
		if err := rows.Scan(&r.ID, &r.OwnerID, &createdAt, &payload); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.CreatedAt = fromNanos(createdAt)
		if len(payload) > 0 {
			r.Payload = payload
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
