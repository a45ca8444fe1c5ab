// Package volatile implements the in-process cache tier: a bounded map that
// evicts strictly in insertion order.
package volatile

import (
	"container/list"
	"sync"

	"github.com/pario-ai/tiercache/pkg/models"
)

// DefaultMaxEntries bounds the tier when no size is given.
const DefaultMaxEntries = 100

// EvictFunc is called with each entry pushed out by the size bound.
type EvictFunc func(e models.RawEntry)

// Tier is a bounded, insertion-ordered entry map. Putting an existing key
// counts as a fresh insertion, so the key becomes the newest.
type Tier struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front = oldest
	onEvict    EvictFunc
}

// New creates a Tier holding at most maxEntries entries.
func New(maxEntries int, onEvict EvictFunc) *Tier {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Tier{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		onEvict:    onEvict,
	}
}

// Get returns the entry for key without changing its position.
func (t *Tier) Get(key string) (models.RawEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.items[key]
	if !ok {
		return models.RawEntry{}, false
	}
	return elem.Value.(models.RawEntry), true
}

// Put inserts e as the newest entry, replacing any previous value for the
// key, and evicts the oldest entry when the bound is exceeded.
func (t *Tier) Put(e models.RawEntry) {
	var evicted []models.RawEntry

	t.mu.Lock()
	if elem, ok := t.items[e.Key]; ok {
		t.order.Remove(elem)
	}
	t.items[e.Key] = t.order.PushBack(e)
	for t.order.Len() > t.maxEntries {
		oldest := t.order.Front()
		entry := oldest.Value.(models.RawEntry)
		t.order.Remove(oldest)
		delete(t.items, entry.Key)
		evicted = append(evicted, entry)
	}
	t.mu.Unlock()

	if t.onEvict != nil {
		for _, entry := range evicted {
			t.onEvict(entry)
		}
	}
}

// Delete removes key if present.
func (t *Tier) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.items[key]; ok {
		t.order.Remove(elem)
		delete(t.items, key)
	}
}

// Clear removes all entries.
func (t *Tier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = make(map[string]*list.Element)
	t.order.Init()
}

// Len returns the number of entries held.
func (t *Tier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// Keys returns keys from oldest to newest insertion.
func (t *Tier) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, t.order.Len())
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(models.RawEntry).Key)
	}
	return keys
}

// MaxEntries returns the configured bound.
func (t *Tier) MaxEntries() int {
	return t.maxEntries
}
