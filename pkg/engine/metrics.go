package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pario-ai/tiercache/pkg/tier"
)

// metrics mirrors the engine counters into Prometheus. A nil *metrics is
// valid and records nothing.
type metrics struct {
	hits            *prometheus.CounterVec
	misses          prometheus.Counter
	promotions      prometheus.Counter
	evictions       prometheus.Counter
	quotaRecoveries prometheus.Counter
	droppedWrites   *prometheus.CounterVec
	dedupHits       prometheus.Counter
	computes        prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "hits_total",
			Help:      "Cache hits by serving tier",
		}, []string{"tier"}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "misses_total",
			Help:      "Lookups absent from every tier",
		}),
		promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "promotions_total",
			Help:      "Entries copied into the volatile tier on read",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "evictions_total",
			Help:      "Entries pushed out of the volatile tier by its bound",
		}),
		quotaRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "quota_recoveries_total",
			Help:      "Fast tier quota recovery runs",
		}),
		droppedWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "dropped_writes_total",
			Help:      "Tier writes abandoned during Set",
		}, []string{"tier"}),
		dedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "artifact_dedup_hits_total",
			Help:      "Artifact requests served from a dedup record",
		}),
		computes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tiercache",
			Name:      "artifact_computes_total",
			Help:      "Artifact compute callbacks invoked",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.hits, m.misses, m.promotions, m.evictions,
		m.quotaRecoveries, m.droppedWrites, m.dedupHits, m.computes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *metrics) hit(k tier.Kind) {
	if m != nil {
		m.hits.WithLabelValues(k.String()).Inc()
	}
}

func (m *metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *metrics) promotion() {
	if m != nil {
		m.promotions.Inc()
	}
}

func (m *metrics) eviction() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *metrics) quotaRecovery() {
	if m != nil {
		m.quotaRecoveries.Inc()
	}
}

func (m *metrics) droppedWrite(k tier.Kind) {
	if m != nil {
		m.droppedWrites.WithLabelValues(k.String()).Inc()
	}
}

func (m *metrics) dedupHit() {
	if m != nil {
		m.dedupHits.Inc()
	}
}

func (m *metrics) compute() {
	if m != nil {
		m.computes.Inc()
	}
}
