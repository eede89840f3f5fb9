package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/artpar/qrng/domain/buffer"
	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, driver string) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`
provider:
  mode: local
cache:
  size: 200
  warmup_timeout: 5s
store:
  driver: %s
  dsn: %q
logging:
  level: error
`, driver, filepath.Join(dir, "buffer.db"))

	path := filepath.Join(dir, "qrng.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()

	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("qrng %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func lines(s string) []string {
	return strings.Fields(strings.TrimSpace(s))
}

func TestDrawHex(t *testing.T) {
	cfg := writeConfig(t, "none")

	got := lines(run(t, "draw", "hex", "--config", cfg, "--count", "2", "--length", "8"))
	if len(got) != 2 {
		t.Fatalf("lines = %v, want 2", got)
	}
	for _, v := range got {
		if len(v) != 8 || !buffer.IsHex(v) {
			t.Errorf("draw hex = %q, want 8 hex digits", v)
		}
	}
}

func TestDrawInteger(t *testing.T) {
	cfg := writeConfig(t, "none")

	got := lines(run(t, "draw", "integer", "--config", cfg, "--count", "20", "--min", "1", "--max", "7"))
	if len(got) != 20 {
		t.Fatalf("lines = %d, want 20", len(got))
	}
	for _, s := range got {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v >= 7 {
			t.Errorf("draw integer = %q, want value in [1, 7)", s)
		}
	}
}

func TestDrawChoiceAndShuffle(t *testing.T) {
	cfg := writeConfig(t, "none")

	for _, v := range lines(run(t, "draw", "choice", "--config", cfg, "--count", "5", "heads", "tails")) {
		if v != "heads" && v != "tails" {
			t.Errorf("draw choice = %q", v)
		}
	}

	got := lines(run(t, "draw", "shuffle", "--config", cfg, "--count", "1", "a", "b", "c", "d"))
	sort.Strings(got)
	if strings.Join(got, "") != "abcd" {
		t.Errorf("draw shuffle = %v, want a permutation of a b c d", got)
	}
}

func TestDrawFloatAndBoolean(t *testing.T) {
	cfg := writeConfig(t, "none")

	for _, s := range lines(run(t, "draw", "float", "--config", cfg, "--count", "3")) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v >= 1 {
			t.Errorf("draw float = %q, want value in [0, 1)", s)
		}
	}
	for _, s := range lines(run(t, "draw", "boolean", "--config", cfg, "--count", "3")) {
		if s != "true" && s != "false" {
			t.Errorf("draw boolean = %q", s)
		}
	}
}

func TestStats_ShowsPersistedBuffer(t *testing.T) {
	cfg := writeConfig(t, "bolt")

	run(t, "draw", "hex", "--config", cfg, "--count", "1", "--length", "4")

	var doc struct {
		Kind string         `json:"kind"`
		Data persistedStats `json:"data"`
	}
	out := run(t, "stats", "--config", cfg, "--output", "json")
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("stats output %q: %v", out, err)
	}
	if doc.Kind != "buffer" {
		t.Errorf("kind = %q, want buffer", doc.Kind)
	}
	stats := doc.Data
	if !stats.Found || !stats.Valid {
		t.Fatalf("stats = %+v, want a valid persisted buffer", stats)
	}
	if stats.Digits == 0 || stats.Capacity != 200 || stats.Status != "ok" {
		t.Errorf("stats = %+v", stats)
	}

	table := run(t, "stats", "--config", cfg, "--output", "table")
	for _, want := range []string{"Driver:", "bolt", "Status:", "ok"} {
		if !strings.Contains(table, want) {
			t.Errorf("table output missing %q:\n%s", want, table)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := writeConfig(t, "sqlite")

	out := run(t, "validate", "--config", cfg, "--check-provider", "--check-store")
	if !strings.Contains(out, "Configuration is valid.") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, crossMark) {
		t.Errorf("validation reported a failure: %q", out)
	}
}

func TestVersion(t *testing.T) {
	out := run(t, "version")
	if !strings.Contains(out, "qrng dev") {
		t.Errorf("output = %q", out)
	}
}
