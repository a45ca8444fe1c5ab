package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pario-ai/tiercache/pkg/digest"
	"github.com/pario-ai/tiercache/pkg/models"
)

// ComputeFunc produces an artifact payload, typically by calling an
// external service.
type ComputeFunc func(ctx context.Context) (string, error)

func artifactKey(d string) string {
	return "artifact_" + d
}

// GetOrComputeArtifact returns the payload recorded for the same promptText
// and producerID when that record is still fresh. Otherwise it runs compute,
// records the result and returns it. Concurrent callers for the same digest
// share one compute call. Compute errors are returned unchanged and nothing
// is recorded.
func (e *Engine) GetOrComputeArtifact(ctx context.Context, producerID, promptText string, compute ComputeFunc) (string, error) {
	d := digest.Artifact(promptText, producerID)

	if payload, ok := e.freshArtifact(ctx, d); ok {
		return payload, nil
	}

	v, err, _ := e.flight.Do(d, func() (any, error) {
		if payload, ok := e.freshArtifact(ctx, d); ok {
			return payload, nil
		}

		gen := e.generation.Load()
		e.stats.computes.Add(1)
		e.metrics.compute()
		payload, err := compute(ctx)
		if err != nil {
			return "", err
		}

		e.storeArtifact(ctx, gen, models.ArtifactRecord{
			Digest:     d,
			ProducerID: producerID,
			Payload:    payload,
			CreatedAt:  e.clock.Now(),
		})
		return payload, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (e *Engine) freshArtifact(ctx context.Context, d string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.findArtifact(ctx, d)
	if !ok || !rec.Fresh(e.clock.Now(), e.freshness) {
		return "", false
	}
	e.stats.dedupHits.Add(1)
	e.metrics.dedupHit()
	return rec.Payload, true
}

func (e *Engine) findArtifact(ctx context.Context, d string) (models.ArtifactRecord, bool) {
	if e.durable != nil {
		rec, ok, err := e.durable.GetArtifact(ctx, d)
		if err != nil {
			e.logger.Warn("artifact lookup failed", "digest", d, "err", err)
			return models.ArtifactRecord{}, false
		}
		return rec, ok
	}

	hit, ok := e.lookup(ctx, artifactKey(d))
	if !ok {
		return models.ArtifactRecord{}, false
	}
	var rec models.ArtifactRecord
	if err := json.Unmarshal(hit.Entry.Value, &rec); err != nil {
		e.logger.Warn("artifact record unreadable", "digest", d, "err", err)
		return models.ArtifactRecord{}, false
	}
	return rec, true
}

// storeArtifact records rec unless ClearAll ran since gen was observed.
// Failures are logged; the caller already has the payload.
func (e *Engine) storeArtifact(ctx context.Context, gen uint64, rec models.ArtifactRecord) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.generation.Load() != gen {
		return
	}

	if e.durable != nil {
		if err := e.durable.UpsertArtifact(ctx, rec); err != nil {
			e.logger.Warn("artifact record failed", "digest", rec.Digest, "err", err)
		}
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		e.logger.Warn("artifact record failed", "digest", rec.Digest, "err", err)
		return
	}
	if _, err := e.set(ctx, artifactKey(rec.Digest), data, e.freshness); err != nil {
		e.logger.Warn("artifact record failed", "digest", rec.Digest, "err", err)
	}
}

// ArtifactsByProducer lists up to limit artifact records from producerID,
// newest first. It returns an empty slice when the durable tier is
// unavailable.
func (e *Engine) ArtifactsByProducer(ctx context.Context, producerID string, limit int) ([]models.ArtifactRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.durable == nil || limit <= 0 {
		return []models.ArtifactRecord{}, nil
	}
	recs, err := e.durable.ArtifactsByProducer(ctx, producerID, limit)
	if err != nil {
		return nil, fmt.Errorf("artifacts for %s: %w", producerID, err)
	}
	return recs, nil
}
