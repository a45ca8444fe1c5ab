package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Volatile.MaxEntries != 100 {
		t.Errorf("expected 100 volatile entries, got %d", cfg.Volatile.MaxEntries)
	}
	if cfg.Cache.ArtifactFreshness != 24*time.Hour {
		t.Errorf("expected 24h freshness, got %v", cfg.Cache.ArtifactFreshness)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_DATA_DIR", "/var/lib/tarot")

	content := `
data_dir: ${TEST_DATA_DIR}
cache:
  default_ttl: 30m
volatile:
  max_entries: 50
fast:
  quota_bytes: 1048576
durable:
  enabled: false
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DataDir != "/var/lib/tarot" {
		t.Errorf("env var not expanded: got %s", cfg.DataDir)
	}
	if cfg.Cache.DefaultTTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Cache.ArtifactFreshness != 24*time.Hour {
		t.Errorf("unset field should keep default, got %v", cfg.Cache.ArtifactFreshness)
	}
	if cfg.Volatile.MaxEntries != 50 {
		t.Errorf("expected 50, got %d", cfg.Volatile.MaxEntries)
	}
	if cfg.Durable.Enabled {
		t.Error("expected durable disabled")
	}
	if got := cfg.FastDir(); got != "/var/lib/tarot/fast" {
		t.Errorf("unexpected fast dir %s", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TIERCACHE_VOLATILE_MAX_ENTRIES", "7")
	t.Setenv("TIERCACHE_DEFAULT_TTL", "2h")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Volatile.MaxEntries != 7 {
		t.Errorf("expected 7, got %d", cfg.Volatile.MaxEntries)
	}
	if cfg.Cache.DefaultTTL != 2*time.Hour {
		t.Errorf("expected 2h, got %v", cfg.Cache.DefaultTTL)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Volatile.MaxEntries = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max entries")
	}

	cfg = Default()
	cfg.Fast.CompressionLevel = 30
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for compression level out of range")
	}
}

func TestDurablePathAbsolute(t *testing.T) {
	cfg := Default()
	cfg.Durable.Path = "/tmp/x.db"
	if cfg.DurablePath() != "/tmp/x.db" {
		t.Errorf("absolute path should not be resolved, got %s", cfg.DurablePath())
	}
}
