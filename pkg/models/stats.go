package models

// CacheStats reports engine performance counters and tier sizes.
type CacheStats struct {
	VolatileHits    int64 `json:"volatile_hits"`
	FastHits        int64 `json:"fast_hits"`
	DurableHits     int64 `json:"durable_hits"`
	Misses          int64 `json:"misses"`
	Promotions      int64 `json:"promotions"`
	Evictions       int64 `json:"evictions"`
	QuotaRecoveries int64 `json:"quota_recoveries"`
	DroppedWrites   int64 `json:"dropped_writes"`
	DedupHits       int64 `json:"dedup_hits"`
	Computes        int64 `json:"computes"`

	VolatileEntries int   `json:"volatile_entries"`
	FastEntries     int   `json:"fast_entries"`
	FastBytes       int64 `json:"fast_bytes"`
	FastQuota       int64 `json:"fast_quota"`
	DurableEntries  int64 `json:"durable_entries"`
	Readings        int64 `json:"readings"`
	Artifacts       int64 `json:"artifacts"`
	DurableEnabled  bool  `json:"durable_enabled"`
}

// Hits sums hits across all tiers.
func (s CacheStats) Hits() int64 {
	return s.VolatileHits + s.FastHits + s.DurableHits
}
