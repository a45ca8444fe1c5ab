package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pario-ai/tiercache/pkg/models"
	"github.com/pario-ai/tiercache/pkg/tier"
	"github.com/pario-ai/tiercache/pkg/tier/fast"
)

// Quota recovery drops 1/recoveryDivisor of the fast tier, oldest first.
const recoveryDivisor = 4

// writeFast stores entry in the fast tier. On a quota error it frees the
// oldest quarter of the tier and retries once; a second failure drops the
// write for this tier only.
func (e *Engine) writeFast(ctx context.Context, entry models.RawEntry) WriteOutcome {
	err := e.fast.Put(ctx, entry)
	if errors.Is(err, fast.ErrQuotaExceeded) {
		e.stats.quotaRecoveries.Add(1)
		e.metrics.quotaRecovery()

		removed, rerr := e.recoverQuota(ctx)
		if rerr != nil {
			e.logger.Warn("quota recovery incomplete", "removed", removed, "err", rerr)
		} else {
			e.logger.Debug("quota recovery", "removed", removed)
		}
		err = e.fast.Put(ctx, entry)
	}
	if err != nil {
		e.logger.Warn("fast tier write dropped", "key", entry.Key, "err", err)
		e.dropWrite(tier.FastPersistent)
		e.discardStale(ctx, tier.FastPersistent, e.fast, entry.Key)
		return WriteOutcome{Tier: tier.FastPersistent, Err: err}
	}
	return WriteOutcome{Tier: tier.FastPersistent, Succeeded: true}
}

// recoverQuota deletes the oldest quarter of fast tier entries by creation
// time, at least one when the tier is not empty.
func (e *Engine) recoverQuota(ctx context.Context) (int, error) {
	keys, err := e.fast.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list fast tier: %w", err)
	}

	type aged struct {
		key       string
		createdAt time.Time
	}
	entries := make([]aged, 0, len(keys))
	for _, key := range keys {
		entry, ok, err := e.fast.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		entries = append(entries, aged{key: key, createdAt: entry.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].createdAt.Equal(entries[j].createdAt) {
			return entries[i].key < entries[j].key
		}
		return entries[i].createdAt.Before(entries[j].createdAt)
	})

	n := len(entries) / recoveryDivisor
	if n == 0 && len(entries) > 0 {
		n = 1
	}

	removed := 0
	for _, a := range entries[:n] {
		if err := e.fast.Delete(ctx, a.key); err != nil {
			return removed, fmt.Errorf("delete %q: %w", a.key, err)
		}
		removed++
	}
	return removed, nil
}
