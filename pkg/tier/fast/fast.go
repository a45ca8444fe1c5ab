// Package fast implements the fast persistent cache tier: a flat directory
// of serialized entries bounded by a byte quota.
//
// Each key is stored in its own file named after the configured prefix and
// the SHA-256 of the key, so several stores can share one directory. The
// store never evicts on its own; a write that would exceed the quota fails
// with ErrQuotaExceeded and the caller decides what to remove.
package fast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pario-ai/tiercache/pkg/codec"
	"github.com/pario-ai/tiercache/pkg/models"
)

const (
	fileSuffix = ".entry"
	tmpSuffix  = ".tmp"
	nameHexLen = 32
)

// Defaults applied by Open for zero-valued options.
const (
	DefaultPrefix     = "tiercache_"
	DefaultQuotaBytes = 5 * 1024 * 1024
)

var (
	// ErrQuotaExceeded is returned when a write would push the store past
	// its byte quota.
	ErrQuotaExceeded = errors.New("fast tier quota exceeded")

	// ErrCorrupt is returned when a stored file cannot be decoded. The file
	// is removed before the error is returned.
	ErrCorrupt = errors.New("fast tier entry corrupted")
)

// Options configures a Store.
type Options struct {
	Dir              string
	Prefix           string
	QuotaBytes       int64
	CompressionLevel int
}

// Store is a directory-backed key/entry store.
type Store struct {
	dir    string
	prefix string
	quota  int64
	comp   *codec.Compressor

	mu    sync.Mutex
	used  int64
	index map[string]indexEntry
}

type indexEntry struct {
	path string
	size int64
}

// Open creates the directory if needed and indexes the entries already
// stored under the prefix. Files that cannot be decoded are removed.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("open fast tier: empty directory")
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.QuotaBytes <= 0 {
		opts.QuotaBytes = DefaultQuotaBytes
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fast tier dir: %w", err)
	}

	comp, err := codec.NewCompressor(opts.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("open fast tier: %w", err)
	}

	s := &Store{
		dir:    opts.Dir,
		prefix: opts.Prefix,
		quota:  opts.QuotaBytes,
		comp:   comp,
		index:  make(map[string]indexEntry),
	}
	if err := s.load(); err != nil {
		comp.Close()
		return nil, fmt.Errorf("index fast tier: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, name)
		if tmp, ok := strings.CutSuffix(name, tmpSuffix); ok && s.owns(tmp) {
			_ = os.Remove(path)
			continue
		}
		if !s.owns(name) {
			continue
		}
		e, size, err := s.readFile(path)
		if err != nil {
			_ = os.Remove(path)
			continue
		}
		s.index[e.Key] = indexEntry{path: path, size: size}
		s.used += size
	}
	return nil
}

// owns reports whether name is an entry file written under this store's
// prefix: prefix, 32 hex digits, suffix.
func (s *Store) owns(name string) bool {
	if len(name) != len(s.prefix)+nameHexLen+len(fileSuffix) ||
		!strings.HasPrefix(name, s.prefix) || !strings.HasSuffix(name, fileSuffix) {
		return false
	}
	_, err := hex.DecodeString(name[len(s.prefix) : len(s.prefix)+nameHexLen])
	return err == nil
}

func (s *Store) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, s.prefix+hex.EncodeToString(sum[:16])+fileSuffix)
}

func (s *Store) readFile(path string) (models.RawEntry, int64, error) {
	var e models.RawEntry
	framed, err := os.ReadFile(path)
	if err != nil {
		return e, 0, err
	}
	data, err := s.comp.Unpack(framed)
	if err != nil {
		return e, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return e, int64(len(framed)), nil
}

// Get returns the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (models.RawEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.RawEntry{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ie, ok := s.index[key]
	if !ok {
		return models.RawEntry{}, false, nil
	}
	e, _, err := s.readFile(ie.path)
	if err != nil {
		s.removeLocked(key, ie)
		if errors.Is(err, os.ErrNotExist) {
			return models.RawEntry{}, false, nil
		}
		return models.RawEntry{}, false, fmt.Errorf("fast get %q: %w", key, err)
	}
	return e, true, nil
}

// Put stores e, replacing any previous entry for the key. It returns
// ErrQuotaExceeded, leaving the store unchanged, when the write does not fit.
func (s *Store) Put(ctx context.Context, e models.RawEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("fast put: %w", err)
	}
	framed := s.comp.Pack(data)
	size := int64(len(framed))

	s.mu.Lock()
	defer s.mu.Unlock()

	var previous int64
	if ie, ok := s.index[e.Key]; ok {
		previous = ie.size
	}
	if s.used-previous+size > s.quota {
		return ErrQuotaExceeded
	}

	path := s.pathFor(e.Key)
	if err := writeFile(path, framed); err != nil {
		return fmt.Errorf("fast put: %w", err)
	}
	s.index[e.Key] = indexEntry{path: path, size: size}
	s.used += size - previous
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ie, ok := s.index[key]; ok {
		return s.removeLocked(key, ie)
	}
	return nil
}

func (s *Store) removeLocked(key string, ie indexEntry) error {
	delete(s.index, key)
	s.used -= ie.size
	if err := os.Remove(ie.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("fast delete %q: %w", key, err)
	}
	return nil
}

// Clear removes every entry under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, ie := range s.index {
		if err := s.removeLocked(key, ie); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys lists stored keys in no particular order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.index))
	for key := range s.index {
		keys = append(keys, key)
	}
	return keys, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Usage returns the bytes stored and the quota.
func (s *Store) Usage() (used, quota int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used, s.quota
}

// Close releases the compressor. Stored files are kept.
func (s *Store) Close() error {
	s.comp.Close()
	return nil
}

// writeFile writes to a temp file and renames it over path.
func writeFile(path string, data []byte) error {
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
