package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pario-ai/tiercache/pkg/codec"
)

// Typed wraps an Engine with a codec so callers work with T instead of
// bytes.
type Typed[T any] struct {
	engine *Engine
	codec  codec.Codec[T]
}

// NewTyped returns a typed view of e.
func NewTyped[T any](e *Engine, c codec.Codec[T]) *Typed[T] {
	return &Typed[T]{engine: e, codec: c}
}

// Get returns the decoded value for key. A value that fails to decode is
// removed and reported as absent.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, ok := t.engine.Get(ctx, key)
	if !ok {
		return zero, false
	}
	v, err := t.codec.Decode(data)
	if err != nil {
		t.engine.logger.Warn("cached value undecodable", "key", key, "err", err)
		if derr := t.engine.Delete(ctx, key); derr != nil {
			t.engine.logger.Warn("undecodable value removal failed", "key", key, "err", derr)
		}
		return zero, false
	}
	return v, true
}

// Set encodes v and stores it under key.
func (t *Typed[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) (WriteReport, error) {
	data, err := t.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", key, err)
	}
	return t.engine.Set(ctx, key, data, ttl)
}

// Delete removes key from every tier.
func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.engine.Delete(ctx, key)
}

// GetOrCompute is GetOrComputeArtifact for typed payloads.
func (t *Typed[T]) GetOrCompute(ctx context.Context, producerID, promptText string, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	payload, err := t.engine.GetOrComputeArtifact(ctx, producerID, promptText, func(ctx context.Context) (string, error) {
		v, err := compute(ctx)
		if err != nil {
			return "", err
		}
		data, err := t.codec.Encode(v)
		if err != nil {
			return "", fmt.Errorf("encode artifact: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return zero, err
	}
	v, err := t.codec.Decode([]byte(payload))
	if err != nil {
		return zero, fmt.Errorf("decode artifact: %w", err)
	}
	return v, nil
}
