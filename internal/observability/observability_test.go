package observability

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmitWritesRotatedJSONLFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Emit("fetcher.complete", map[string]any{"source_id": int64(7), "fetched": 3})

	path := filepath.Join(dir, time.Now().UTC().Format(dateLayout)+fileSuffix)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected a %s file to exist: %v", path, err)
	}

	var rec map[string]any
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		t.Fatalf("expected at least one line in %s", path)
	}
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal line: %v", err)
	}
	if rec["event"] != "fetcher.complete" {
		t.Fatalf("expected event=fetcher.complete, got %v", rec["event"])
	}
	if _, ok := rec["ts"]; !ok {
		t.Fatalf("expected a ts field, got %v", rec)
	}
	if rec["source_id"] != float64(7) {
		t.Fatalf("expected source_id=7, got %v", rec["source_id"])
	}
}

func TestEmitAppendsMultipleLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Emit("tick.complete", map[string]any{"n": 1})
	logger.Emit("tick.complete", map[string]any{"n": 2})

	path := filepath.Join(dir, time.Now().UTC().Format(dateLayout)+fileSuffix)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := countLines(string(data))
	if lines != 2 {
		t.Fatalf("expected 2 lines after 2 Emit calls, got %d", lines)
	}
}

func TestCleanupRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	old := time.Now().UTC().Add(-60 * 24 * time.Hour).Format(dateLayout) + fileSuffix
	recent := time.Now().UTC().Format(dateLayout) + fileSuffix
	if err := os.WriteFile(filepath.Join(dir, old), []byte(`{"ts":"x","event":"old"}`+"\n"), 0o644); err != nil {
		t.Fatalf("seed old file: %v", err)
	}
	logger.Emit("fresh.event", nil)

	if err := logger.Cleanup(30 * 24 * time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, old)); !os.IsNotExist(err) {
		t.Fatalf("expected the 60-day-old file to be removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, recent)); err != nil {
		t.Fatalf("expected today's file to survive cleanup: %v", err)
	}
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
