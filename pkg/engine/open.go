package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pario-ai/tiercache/pkg/config"
	"github.com/pario-ai/tiercache/pkg/tier/durable"
	"github.com/pario-ai/tiercache/pkg/tier/fast"
)

// Open builds an engine from cfg. A durable tier that is disabled or fails
// to open leaves the engine running on the volatile and fast tiers.
// Options given here override values taken from cfg.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	base := []Option{
		WithMaxEntries(cfg.Volatile.MaxEntries),
		WithDefaultTTL(cfg.Cache.DefaultTTL),
		WithFreshness(cfg.Cache.ArtifactFreshness),
	}
	opts = append(base, opts...)
	logger := buildOptions(opts).logger

	fastStore, err := fast.Open(fast.Options{
		Dir:              cfg.FastDir(),
		Prefix:           cfg.Fast.Prefix,
		QuotaBytes:       cfg.Fast.QuotaBytes,
		CompressionLevel: cfg.Fast.CompressionLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("open fast tier: %w", err)
	}

	var durableTier DurableTier
	if cfg.Durable.Enabled {
		store, err := openDurable(ctx, cfg.DurablePath())
		if err != nil {
			logger.Warn("durable tier unavailable, continuing without it", "err", err)
		} else {
			durableTier = store
		}
	}

	e, err := New(fastStore, durableTier, opts...)
	if err != nil {
		_ = fastStore.Close()
		if durableTier != nil {
			_ = durableTier.Close()
		}
		return nil, err
	}
	return e, nil
}

func openDurable(ctx context.Context, path string) (*durable.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create durable dir: %w", err)
		}
	}
	return durable.Open(ctx, path)
}
