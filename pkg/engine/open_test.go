package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/tiercache/pkg/config"
	"github.com/pario-ai/tiercache/pkg/tier"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestOpenFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Volatile.MaxEntries = 5

	e, err := Open(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.True(t, e.DurableAvailable())
	assert.Equal(t, 5, e.volatile.MaxEntries())

	_, err = e.Set(ctx, "k", []byte("v"), 0)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	// A fresh engine over the same directory serves the value from disk.
	e, err = Open(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	hit, ok := e.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, tier.FastPersistent, hit.Source)
}

func TestOpenWithDurableDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Durable.Enabled = false

	e, err := Open(context.Background(), cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	assert.False(t, e.DurableAvailable())
}

func TestOpenSurvivesDurableFailure(t *testing.T) {
	cfg := testConfig(t)
	// A directory cannot be opened as a database file.
	cfg.Durable.Path = t.TempDir()

	e, err := Open(context.Background(), cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	assert.False(t, e.DurableAvailable())

	_, err = e.Set(context.Background(), "k", []byte("v"), time.Hour)
	assert.NoError(t, err)
}

func TestConcurrentSetAndClearAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg conc.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Go(func() {
			for i := 0; i < 25; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				_, err := h.engine.Set(ctx, key, []byte("v"), time.Hour)
				assert.NoError(t, err)
				h.engine.Get(ctx, key)
			}
		})
	}
	wg.Go(func() {
		for i := 0; i < 5; i++ {
			assert.NoError(t, h.engine.ClearAll(ctx))
		}
	})
	wg.Wait()

	require.NoError(t, h.engine.ClearAll(ctx))
	stats, err := h.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.VolatileEntries)
	assert.Zero(t, stats.FastEntries)
	assert.Zero(t, stats.DurableEntries)
}
