// Package engine coordinates the cache tiers. Reads fall through volatile,
// fast persistent and durable storage in that order, promoting hits upward.
// Writes go to every available tier.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/tiercache/pkg/clock"
	"github.com/pario-ai/tiercache/pkg/models"
	"github.com/pario-ai/tiercache/pkg/tier"
	"github.com/pario-ai/tiercache/pkg/tier/durable"
	"github.com/pario-ai/tiercache/pkg/tier/fast"
	"github.com/pario-ai/tiercache/pkg/tier/volatile"
)

var (
	// ErrStorageUnavailable is returned by operations that need the
	// durable tier when it could not be opened.
	ErrStorageUnavailable = errors.New("durable storage unavailable")

	// ErrNoTierWritten is returned by Set when every tier rejected the write.
	ErrNoTierWritten = errors.New("no tier accepted the write")
)

// FastTier is the bounded on-disk tier.
type FastTier interface {
	tier.Tier
	Keys(ctx context.Context) ([]string, error)
	Len() int
	Usage() (used, quota int64)
	Close() error
}

// DurableTier is the database-backed tier holding generic entries plus
// reading and artifact records.
type DurableTier interface {
	tier.Tier
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	AppendReading(ctx context.Context, rec models.ReadingRecord) error
	ReadingsByOwner(ctx context.Context, ownerID string, limit int) ([]models.ReadingRecord, error)
	GetArtifact(ctx context.Context, digest string) (models.ArtifactRecord, bool, error)
	UpsertArtifact(ctx context.Context, r models.ArtifactRecord) error
	ArtifactsByProducer(ctx context.Context, producerID string, limit int) ([]models.ArtifactRecord, error)
	Counts(ctx context.Context) (durable.Counts, error)
	ClearAll(ctx context.Context) error
	Close() error
}

var (
	_ FastTier    = (*fast.Store)(nil)
	_ DurableTier = (*durable.Store)(nil)
)

// Hit describes a successful lookup.
type Hit struct {
	Entry  models.RawEntry
	Source tier.Kind
}

// WriteOutcome records what happened to one tier during Set.
type WriteOutcome struct {
	Tier      tier.Kind
	Succeeded bool
	Err       error
}

// WriteReport lists the outcome per tier, in tier order.
type WriteReport []WriteOutcome

// Succeeded reports whether tier k accepted the write.
func (r WriteReport) Succeeded(k tier.Kind) bool {
	for _, o := range r {
		if o.Tier == k {
			return o.Succeeded
		}
	}
	return false
}

// Any reports whether at least one tier accepted the write.
func (r WriteReport) Any() bool {
	for _, o := range r {
		if o.Succeeded {
			return true
		}
	}
	return false
}

type counters struct {
	volatileHits    atomic.Int64
	fastHits        atomic.Int64
	durableHits     atomic.Int64
	misses          atomic.Int64
	promotions      atomic.Int64
	evictions       atomic.Int64
	quotaRecoveries atomic.Int64
	droppedWrites   atomic.Int64
	dedupHits       atomic.Int64
	computes        atomic.Int64
}

// Engine is the tiered cache. It is safe for concurrent use.
type Engine struct {
	// mu is held shared by ordinary operations and exclusively by ClearAll.
	mu sync.RWMutex

	volatile *volatile.Tier
	fast     FastTier
	durable  DurableTier

	clock      clock.Clock
	logger     *log.Logger
	defaultTTL time.Duration
	freshness  time.Duration

	stats   counters
	metrics *metrics

	flight     singleflight.Group
	generation atomic.Uint64
}

type level struct {
	kind  tier.Kind
	store tier.Tier
}

// New builds an engine over the given persistent tiers. Either may be nil,
// in which case that tier is skipped.
func New(fastTier FastTier, durableTier DurableTier, opts ...Option) (*Engine, error) {
	o := buildOptions(opts)
	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		fast:       fastTier,
		durable:    durableTier,
		clock:      o.clock,
		logger:     o.logger,
		defaultTTL: o.defaultTTL,
		freshness:  o.freshness,
		metrics:    m,
	}
	e.volatile = volatile.New(o.maxEntries, func(models.RawEntry) {
		e.stats.evictions.Add(1)
		e.metrics.eviction()
	})
	return e, nil
}

// Close releases the persistent tiers.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.fast != nil {
		if err := e.fast.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fast tier: %w", err))
		}
	}
	if e.durable != nil {
		if err := e.durable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close durable tier: %w", err))
		}
	}
	return errors.Join(errs...)
}

// DurableAvailable reports whether the durable tier is in use.
func (e *Engine) DurableAvailable() bool {
	return e.durable != nil
}

func (e *Engine) levels() []level {
	levels := make([]level, 0, 2)
	if e.fast != nil {
		levels = append(levels, level{tier.FastPersistent, e.fast})
	}
	if e.durable != nil {
		levels = append(levels, level{tier.Durable, e.durable})
	}
	return levels
}

// Get returns the live value for key from the first tier holding it.
func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool) {
	hit, ok := e.Lookup(ctx, key)
	if !ok {
		return nil, false
	}
	return hit.Entry.Value, true
}

// Lookup is Get that also reports which tier served the value.
func (e *Engine) Lookup(ctx context.Context, key string) (Hit, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lookup(ctx, key)
}

func (e *Engine) lookup(ctx context.Context, key string) (Hit, bool) {
	now := e.clock.Now()

	if entry, ok := e.volatile.Get(key); ok {
		if !entry.Expired(now) {
			e.recordHit(tier.Volatile)
			return Hit{Entry: entry, Source: tier.Volatile}, true
		}
		e.volatile.Delete(key)
	}

	for _, l := range e.levels() {
		entry, ok, err := l.store.Get(ctx, key)
		if err != nil {
			e.logger.Warn("tier read failed", "tier", l.kind, "key", key, "err", err)
			continue
		}
		if !ok {
			continue
		}
		if entry.Expired(now) {
			if err := l.store.Delete(ctx, key); err != nil {
				e.logger.Warn("expired entry removal failed", "tier", l.kind, "key", key, "err", err)
			}
			continue
		}

		e.volatile.Put(entry)
		e.stats.promotions.Add(1)
		e.metrics.promotion()
		e.recordHit(l.kind)
		return Hit{Entry: entry, Source: l.kind}, true
	}

	e.stats.misses.Add(1)
	e.metrics.miss()
	return Hit{}, false
}

func (e *Engine) recordHit(k tier.Kind) {
	switch k {
	case tier.Volatile:
		e.stats.volatileHits.Add(1)
	case tier.FastPersistent:
		e.stats.fastHits.Add(1)
	case tier.Durable:
		e.stats.durableHits.Add(1)
	}
	e.metrics.hit(k)
}

// Set stores value under key in every tier. A ttl of zero or less uses the
// engine default. Fast and durable tier failures are logged and reported in
// the returned WriteReport; an error is returned only when no tier took the
// value.
func (e *Engine) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (WriteReport, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set(ctx, key, value, ttl)
}

func (e *Engine) set(ctx context.Context, key string, value []byte, ttl time.Duration) (WriteReport, error) {
	if ttl <= 0 {
		ttl = e.defaultTTL
	}
	entry := models.NewEntry(key, value, e.clock.Now(), ttl)

	e.volatile.Put(entry)
	report := WriteReport{{Tier: tier.Volatile, Succeeded: true}}

	if e.fast != nil {
		report = append(report, e.writeFast(ctx, entry))
	}
	if e.durable != nil {
		outcome := WriteOutcome{Tier: tier.Durable, Succeeded: true}
		if err := e.durable.Put(ctx, entry); err != nil {
			e.logger.Warn("durable write failed", "key", key, "err", err)
			e.dropWrite(tier.Durable)
			e.discardStale(ctx, tier.Durable, e.durable, key)
			outcome = WriteOutcome{Tier: tier.Durable, Err: err}
		}
		report = append(report, outcome)
	}

	if !report.Any() {
		return report, fmt.Errorf("set %q: %w", key, ErrNoTierWritten)
	}
	return report, nil
}

func (e *Engine) dropWrite(k tier.Kind) {
	e.stats.droppedWrites.Add(1)
	e.metrics.droppedWrite(k)
}

// discardStale removes key from a tier that rejected a newer value, so a
// later read cannot fall through to the previous one.
func (e *Engine) discardStale(ctx context.Context, k tier.Kind, t tier.Tier, key string) {
	if err := t.Delete(ctx, key); err != nil {
		e.logger.Warn("stale entry removal failed", "tier", k, "key", key, "err", err)
	}
}

// Delete removes key from every tier.
func (e *Engine) Delete(ctx context.Context, key string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	e.volatile.Delete(key)
	var errs []error
	for _, l := range e.levels() {
		if err := l.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %q from %s tier: %w", key, l.kind, err))
		}
	}
	return errors.Join(errs...)
}

// ClearAll empties every tier, including reading and artifact records. No
// other operation on the engine runs while it does.
func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation.Add(1)
	e.volatile.Clear()

	var errs []error
	if e.fast != nil {
		if err := e.fast.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear fast tier: %w", err))
		}
	}
	if e.durable != nil {
		if err := e.durable.ClearAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear durable tier: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	e.logger.Info("cache cleared")
	return nil
}

// PruneExpired eagerly removes expired entries from every tier and returns
// how many were removed.
func (e *Engine) PruneExpired(ctx context.Context) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.clock.Now()
	removed := 0

	for _, key := range e.volatile.Keys() {
		if entry, ok := e.volatile.Get(key); ok && entry.Expired(now) {
			e.volatile.Delete(key)
			removed++
		}
	}

	if e.fast != nil {
		keys, err := e.fast.Keys(ctx)
		if err != nil {
			return removed, fmt.Errorf("prune fast tier: %w", err)
		}
		for _, key := range keys {
			entry, ok, err := e.fast.Get(ctx, key)
			if err != nil || !ok || !entry.Expired(now) {
				continue
			}
			if err := e.fast.Delete(ctx, key); err != nil {
				return removed, fmt.Errorf("prune fast tier: %w", err)
			}
			removed++
		}
	}

	if e.durable != nil {
		n, err := e.durable.DeleteExpired(ctx, now)
		removed += int(n)
		if err != nil {
			return removed, fmt.Errorf("prune durable tier: %w", err)
		}
	}
	return removed, nil
}

// Stats returns counters and current tier sizes.
func (e *Engine) Stats(ctx context.Context) (models.CacheStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := models.CacheStats{
		VolatileHits:    e.stats.volatileHits.Load(),
		FastHits:        e.stats.fastHits.Load(),
		DurableHits:     e.stats.durableHits.Load(),
		Misses:          e.stats.misses.Load(),
		Promotions:      e.stats.promotions.Load(),
		Evictions:       e.stats.evictions.Load(),
		QuotaRecoveries: e.stats.quotaRecoveries.Load(),
		DroppedWrites:   e.stats.droppedWrites.Load(),
		DedupHits:       e.stats.dedupHits.Load(),
		Computes:        e.stats.computes.Load(),
		VolatileEntries: e.volatile.Len(),
		DurableEnabled:  e.durable != nil,
	}
	if e.fast != nil {
		s.FastEntries = e.fast.Len()
		s.FastBytes, s.FastQuota = e.fast.Usage()
	}
	if e.durable != nil {
		c, err := e.durable.Counts(ctx)
		if err != nil {
			return s, fmt.Errorf("durable counts: %w", err)
		}
		s.DurableEntries = c.Entries
		s.Readings = c.Readings
		s.Artifacts = c.Artifacts
	}
	return s, nil
}
