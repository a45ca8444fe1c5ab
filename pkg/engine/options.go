package engine

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pario-ai/tiercache/pkg/clock"
	"github.com/pario-ai/tiercache/pkg/tier/volatile"
)

// Defaults used when no option overrides them.
const (
	DefaultTTL       = 24 * time.Hour
	DefaultFreshness = 24 * time.Hour

	// ReadingResultTTL is how long a full reading result stays cached.
	ReadingResultTTL = time.Hour
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	clock      clock.Clock
	logger     *log.Logger
	registerer prometheus.Registerer
	defaultTTL time.Duration
	freshness  time.Duration
	maxEntries int
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger tier failures are reported to.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer exports engine counters as Prometheus metrics.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithDefaultTTL sets the TTL used by Set when none is given.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.defaultTTL = d
		}
	}
}

// WithFreshness sets how long an artifact record may be reused.
func WithFreshness(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.freshness = d
		}
	}
}

// WithMaxEntries bounds the volatile tier.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		clock:      clock.Real{},
		defaultTTL: DefaultTTL,
		freshness:  DefaultFreshness,
		maxEntries: volatile.DefaultMaxEntries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "tiercache",
			Level:  log.WarnLevel,
		})
	}
	return o
}
