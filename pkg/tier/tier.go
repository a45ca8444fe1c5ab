// Package tier defines the contract shared by the cache's storage levels.
package tier

import (
	"context"

	"github.com/pario-ai/tiercache/pkg/models"
)

// Kind identifies a storage level.
type Kind int

const (
	// Volatile is the bounded in-process map.
	Volatile Kind = iota
	// FastPersistent is the flat on-disk key store.
	FastPersistent
	// Durable is the structured SQLite store.
	Durable
)

// String returns the tier name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case Volatile:
		return "volatile"
	case FastPersistent:
		return "fast"
	case Durable:
		return "durable"
	default:
		return "unknown"
	}
}

// Tier is a key/entry store. Tiers do not interpret expiry; the engine does.
type Tier interface {
	// Get returns the stored entry, expired or not.
	Get(ctx context.Context, key string) (models.RawEntry, bool, error)
	// Put inserts or replaces an entry.
	Put(ctx context.Context, e models.RawEntry) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
}
