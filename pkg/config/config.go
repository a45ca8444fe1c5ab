package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all tiercache configuration.
type Config struct {
	DataDir  string         `yaml:"data_dir" env:"TIERCACHE_DATA_DIR"`
	LogLevel string         `yaml:"log_level" env:"TIERCACHE_LOG_LEVEL"`
	Cache    CacheConfig    `yaml:"cache"`
	Volatile VolatileConfig `yaml:"volatile"`
	Fast     FastConfig     `yaml:"fast"`
	Durable  DurableConfig  `yaml:"durable"`
}

// CacheConfig controls engine-wide lifetimes.
type CacheConfig struct {
	DefaultTTL        time.Duration `yaml:"default_ttl" env:"TIERCACHE_DEFAULT_TTL"`
	ArtifactFreshness time.Duration `yaml:"artifact_freshness" env:"TIERCACHE_ARTIFACT_FRESHNESS"`
}

// VolatileConfig bounds the in-process tier.
type VolatileConfig struct {
	MaxEntries int `yaml:"max_entries" env:"TIERCACHE_VOLATILE_MAX_ENTRIES"`
}

// FastConfig controls the on-disk key tier.
type FastConfig struct {
	Dir              string `yaml:"dir" env:"TIERCACHE_FAST_DIR"`
	Prefix           string `yaml:"prefix" env:"TIERCACHE_FAST_PREFIX"`
	QuotaBytes       int64  `yaml:"quota_bytes" env:"TIERCACHE_FAST_QUOTA_BYTES"`
	CompressionLevel int    `yaml:"compression_level" env:"TIERCACHE_FAST_COMPRESSION_LEVEL"`
}

// DurableConfig controls the SQLite tier.
type DurableConfig struct {
	Enabled bool   `yaml:"enabled" env:"TIERCACHE_DURABLE_ENABLED"`
	Path    string `yaml:"path" env:"TIERCACHE_DURABLE_PATH"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DataDir:  ".tiercache",
		LogLevel: "warn",
		Cache: CacheConfig{
			DefaultTTL:        24 * time.Hour,
			ArtifactFreshness: 24 * time.Hour,
		},
		Volatile: VolatileConfig{
			MaxEntries: 100,
		},
		Fast: FastConfig{
			Dir:              "fast",
			Prefix:           "tiercache_",
			QuotaBytes:       5 * 1024 * 1024,
			CompressionLevel: 3,
		},
		Durable: DurableConfig{
			Enabled: true,
			Path:    "tiercache.db",
		},
	}
}

// Load reads a YAML config file, expands environment variables in it and
// applies TIERCACHE_* overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadOrDefault is Load, except that a missing file yields the defaults
// with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	cfg = Default()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Cache.DefaultTTL <= 0:
		return fmt.Errorf("invalid config: cache.default_ttl must be positive")
	case c.Cache.ArtifactFreshness <= 0:
		return fmt.Errorf("invalid config: cache.artifact_freshness must be positive")
	case c.Volatile.MaxEntries <= 0:
		return fmt.Errorf("invalid config: volatile.max_entries must be positive")
	case c.Fast.QuotaBytes <= 0:
		return fmt.Errorf("invalid config: fast.quota_bytes must be positive")
	case c.Fast.CompressionLevel < 0 || c.Fast.CompressionLevel > 22:
		return fmt.Errorf("invalid config: fast.compression_level must be between 0 and 22")
	}
	return nil
}

// FastDir returns the fast tier directory, resolved under DataDir when
// relative.
func (c *Config) FastDir() string {
	return c.resolve(c.Fast.Dir)
}

// DurablePath returns the SQLite file path, resolved under DataDir when
// relative.
func (c *Config) DurablePath() string {
	if c.Durable.Path == ":memory:" {
		return c.Durable.Path
	}
	return c.resolve(c.Durable.Path)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
