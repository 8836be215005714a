package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prismis/prismis/internal/models"
)

func highPriorityItem(title string) models.ContentItem {
	p := models.PriorityHigh
	return models.ContentItem{ID: 1, Title: title, URL: "https://example.com/a", Priority: &p}
}

func lowPriorityItem(title string) models.ContentItem {
	p := models.PriorityLow
	return models.ContentItem{ID: 2, Title: title, URL: "https://example.com/b", Priority: &p}
}

// scriptThatRecordsArgs writes a shell script under dir that appends its
// arguments to out.txt, one invocation per line.
func scriptThatRecordsArgs(t *testing.T, dir string) (scriptPath, outPath string) {
	t.Helper()
	outPath = filepath.Join(dir, "out.txt")
	scriptPath = filepath.Join(dir, "notify.sh")
	body := "#!/bin/sh\necho \"$@\" >> \"" + outPath + "\"\n"
	if err := os.WriteFile(scriptPath, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return scriptPath, outPath
}

func TestNotifyInvokesCommandForHighPriorityItems(t *testing.T) {
	dir := t.TempDir()
	script, out := scriptThatRecordsArgs(t, dir)

	n := New(script, true, nil)
	n.Notify(context.Background(), []models.ContentItem{highPriorityItem("Breaking news")})

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected the notify command to run, read error: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected the notify command to receive arguments, got empty output")
	}
}

func TestNotifySkipsLowPriorityWhenHighPriorityOnly(t *testing.T) {
	dir := t.TempDir()
	script, out := scriptThatRecordsArgs(t, dir)

	n := New(script, true, nil)
	n.Notify(context.Background(), []models.ContentItem{lowPriorityItem("Minor update")})

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no invocation for a low-priority item in high-priority-only mode, stat err=%v", err)
	}
}

func TestNotifyNoopWithEmptyCommand(t *testing.T) {
	n := New("", true, nil)
	// Must not panic or block; there is nothing to assert on beyond
	// "returns".
	n.Notify(context.Background(), []models.ContentItem{highPriorityItem("x")})
}

func TestNotifyRunsForEveryPriorityWhenNotHighOnly(t *testing.T) {
	dir := t.TempDir()
	script, out := scriptThatRecordsArgs(t, dir)

	n := New(script, false, nil)
	n.Notify(context.Background(), []models.ContentItem{
		highPriorityItem("first"),
		lowPriorityItem("second"),
	})

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected invocations for both items: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Fatalf("expected 2 invocations (one per item), got %d lines: %q", lines, string(data))
	}
}
