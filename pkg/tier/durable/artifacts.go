package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pario-ai/tiercache/pkg/models"
)

// GetArtifact returns the dedup record for digest.
func (s *Store) GetArtifact(ctx context.Context, digest string) (models.ArtifactRecord, bool, error) {
	r := models.ArtifactRecord{Digest: digest}
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT producer_id, payload, created_at FROM artifacts WHERE digest = ?`, digest,
	).Scan(&r.ProducerID, &r.Payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ArtifactRecord{}, false, nil
	}
	if err != nil {
		return models.ArtifactRecord{}, false, fmt.Errorf("get artifact: %w", err)
	}
	r.CreatedAt = fromNanos(createdAt)
	return r, true, nil
}

// UpsertArtifact stores r, replacing any record with the same digest.
func (s *Store) UpsertArtifact(ctx context.Context, r models.ArtifactRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (digest, producer_id, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(digest) DO UPDATE SET
			producer_id = excluded.producer_id,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		r.Digest, r.ProducerID, r.Payload, toNanos(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

// ArtifactsByProducer returns up to limit records for producerID, newest
// first.
func (s *Store) ArtifactsByProducer(ctx context.Context, producerID string, limit int) ([]models.ArtifactRecord, error) {
	if limit <= 0 {
		return []models.ArtifactRecord{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT digest, producer_id, payload, created_at FROM artifacts
		 WHERE producer_id = ? ORDER BY created_at DESC LIMIT ?`,
		producerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	records := []models.ArtifactRecord{}
	for rows.Next() {
		var r models.ArtifactRecord
		var createdAt int64
		if err := rows.Scan(&r.Digest, &r.ProducerID, &r.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		r.CreatedAt = fromNanos(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}
