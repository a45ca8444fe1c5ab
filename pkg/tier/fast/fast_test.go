package fast

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/tiercache/pkg/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	s, err := Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	e := models.NewEntry("q1", []byte("reading-text"), t0, time.Hour)
	if err := s.Put(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got.Value) != "reading-text" {
		t.Errorf("unexpected value %q", got.Value)
	}
	if !got.CreatedAt.Equal(t0) || !got.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("timestamps not preserved: %+v", got)
	}

	if _, ok, _ := s.Get(ctx, "q2"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestQuotaExceeded(t *testing.T) {
	s := newTestStore(t, Options{QuotaBytes: 400, CompressionLevel: 0})
	ctx := context.Background()

	if err := s.Put(ctx, models.NewEntry("a", []byte("small"), t0, time.Hour)); err != nil {
		t.Fatal(err)
	}
	usedBefore, _ := s.Usage()

	big := models.NewEntry("b", []byte(strings.Repeat("x", 500)), t0, time.Hour)
	err := s.Put(ctx, big)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	usedAfter, quota := s.Usage()
	if usedAfter != usedBefore {
		t.Errorf("failed write changed usage: %d -> %d", usedBefore, usedAfter)
	}
	if quota != 400 {
		t.Errorf("expected quota 400, got %d", quota)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", s.Len())
	}
}

func TestReplaceAccountsPreviousSize(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	_ = s.Put(ctx, models.NewEntry("a", []byte("first"), t0, time.Hour))
	_ = s.Put(ctx, models.NewEntry("a", []byte("second"), t0, time.Hour))

	used, _ := s.Usage()
	info, err := os.Stat(s.pathFor("a"))
	if err != nil {
		t.Fatal(err)
	}
	if used != info.Size() {
		t.Errorf("usage %d should equal the single file size %d", used, info.Size())
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Put(ctx, models.NewEntry("keep", []byte("v"), t0, time.Hour))
	_ = s.Close()

	s2 := newTestStore(t, Options{Dir: dir})
	got, ok, err := s2.Get(ctx, "keep")
	if err != nil || !ok {
		t.Fatalf("expected entry after reopen, ok=%v err=%v", ok, err)
	}
	if string(got.Value) != "v" {
		t.Errorf("unexpected value %q", got.Value)
	}
	if used, _ := s2.Usage(); used == 0 {
		t.Error("usage should be rebuilt on open")
	}
}

func TestCorruptFileRemovedOnOpen(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, DefaultPrefix+strings.Repeat("de", 16)+fileSuffix)
	if err := os.WriteFile(bad, []byte{7, 7, 7}, 0o644); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, Options{Dir: dir})
	if s.Len() != 0 {
		t.Errorf("expected empty index, got %d", s.Len())
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("corrupt file should be removed")
	}
}

func TestPrefixIsolation(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a := newTestStore(t, Options{Dir: dir, Prefix: "a_"})
	b := newTestStore(t, Options{Dir: dir, Prefix: "b_"})
	_ = a.Put(ctx, models.NewEntry("k", []byte("from a"), t0, time.Hour))

	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("store b should not see store a's key")
	}
	if err := b.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	reopened := newTestStore(t, Options{Dir: dir, Prefix: "a_"})
	if _, ok, _ := reopened.Get(ctx, "k"); !ok {
		t.Error("clearing b must not remove a's files")
	}
}

func TestOverlappingPrefixIsolation(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	long := newTestStore(t, Options{Dir: dir, Prefix: "tc2"})
	if err := long.Put(ctx, models.NewEntry("k", []byte("from tc2"), t0, time.Hour)); err != nil {
		t.Fatal(err)
	}

	short := newTestStore(t, Options{Dir: dir, Prefix: "tc"})
	if short.Len() != 0 {
		t.Fatalf("store tc indexed %d files of store tc2", short.Len())
	}
	if err := short.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	reopened := newTestStore(t, Options{Dir: dir, Prefix: "tc2"})
	if _, ok, _ := reopened.Get(ctx, "k"); !ok {
		t.Error("clearing tc must not remove tc2's files")
	}
}

func TestLeftoverTempFilesRemovedOnOpen(t *testing.T) {
	dir := t.TempDir()
	own := filepath.Join(dir, DefaultPrefix+strings.Repeat("ab", 16)+fileSuffix+tmpSuffix)
	foreign := filepath.Join(dir, "other_"+strings.Repeat("ab", 16)+fileSuffix+tmpSuffix)
	for _, p := range []string{own, foreign} {
		if err := os.WriteFile(p, []byte("partial"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := newTestStore(t, Options{Dir: dir})
	if s.Len() != 0 {
		t.Errorf("expected empty index, got %d", s.Len())
	}
	if _, err := os.Stat(own); !os.IsNotExist(err) {
		t.Error("leftover temp file should be removed")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("another prefix's temp file must be kept: %v", err)
	}
}

func TestDeleteClearKeys(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_ = s.Put(ctx, models.NewEntry(k, []byte(k), t0, time.Hour))
	}
	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatal(err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if used, _ := s.Usage(); used != 0 || s.Len() != 0 {
		t.Errorf("expected empty store, used=%d len=%d", used, s.Len())
	}
}

func TestCompressedEntryRoundTrip(t *testing.T) {
	s := newTestStore(t, Options{CompressionLevel: 3})
	ctx := context.Background()

	payload := []byte(strings.Repeat("the tower falls ", 400))
	_ = s.Put(ctx, models.NewEntry("big", payload, t0, time.Hour))

	used, _ := s.Usage()
	if used >= int64(len(payload)) {
		t.Errorf("expected compressed size below %d, got %d", len(payload), used)
	}
	got, ok, err := s.Get(ctx, "big")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(got.Value) != string(payload) {
		t.Error("payload changed through compression")
	}
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Put(ctx, models.NewEntry("a", []byte("a"), t0, time.Hour)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
