package models

import "time"

// Entry is a cached value with its lifetime bounds.
type Entry[T any] struct {
	Key       string    `json:"key"`
	Value     T         `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RawEntry is the serialized form every tier stores.
type RawEntry = Entry[[]byte]

// NewEntry builds an entry created at now that expires after ttl.
func NewEntry[T any](key string, value T, now time.Time, ttl time.Duration) Entry[T] {
	return Entry[T]{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the entry is no longer valid at now.
// An entry is absent from the instant createdAt+ttl onwards.
func (e Entry[T]) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
