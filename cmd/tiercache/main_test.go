package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tiercache.yaml")
	cfg := "data_dir: " + filepath.Join(dir, "data") + "\nlog_level: error\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCacheSetGetClear(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "cache", "set", "q1", "reading-text", "--ttl", "1h")
	if err != nil {
		t.Fatal(err)
	}
	for _, tier := range []string{"volatile", "fast", "durable"} {
		if !strings.Contains(out, tier) {
			t.Errorf("set report missing %s tier:\n%s", tier, out)
		}
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("unexpected dropped write:\n%s", out)
	}

	out, err = run(t, cfg, "cache", "get", "q1")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "reading-text" {
		t.Errorf("get = %q", out)
	}

	out, err = run(t, cfg, "cache", "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "durable") {
		t.Errorf("stats missing durable row:\n%s", out)
	}

	if _, err := run(t, cfg, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, cfg, "cache", "get", "q1"); err == nil {
		t.Error("expected not found after clear")
	}
}

func TestReadingsEmpty(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "readings", "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No readings found.") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = run(t, cfg, "artifacts", "gpt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No artifacts found.") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestMissingConfigFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := run(t, "absent.yaml", "cache", "prune"); err != nil {
		t.Fatal(err)
	}
}
