package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/archive_redirector/internal/types"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestAuditLogWritesDecisions(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLog(dir, 1)
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	a.w.now = func() time.Time { return fixed }

	a.RecordDecision(types.DecisionRecord{Timestamp: fixed, Hook: types.HookBeforeNavigate, TabID: 1, URL: "https://example.com/a", Outcome: "redirect", Target: "https://archive.is/newest/https://example.com/a"})
	a.RecordDecision(types.DecisionRecord{Timestamp: fixed, Hook: types.HookCompleted, TabID: 1, URL: "https://example.com/", Outcome: "skip_homepage"})
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "2026-03-14", auditFileName))
	if len(lines) != 2 {
		t.Fatalf("lines = %d; want 2", len(lines))
	}
	var rec types.DecisionRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line not JSON: %v", err)
	}
	if rec.Outcome != "redirect" || rec.Hook != types.HookBeforeNavigate {
		t.Fatalf("first record = %+v", rec)
	}
}

func TestJSONLWriterRotatesByDate(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLWriter(dir, "x.jsonl", 16, 1)
	day := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	w.mu.Lock()
	w.now = func() time.Time { return day }
	w.mu.Unlock()

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	waitForFile(t, filepath.Join(dir, "2026-01-01", "x.jsonl"))

	w.mu.Lock()
	w.now = func() time.Time { return day.Add(2 * time.Hour) }
	w.mu.Unlock()
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := readLines(t, filepath.Join(dir, "2026-01-02", "x.jsonl")); len(got) != 1 || got[0] != `{"n":2}` {
		t.Fatalf("second day lines = %q", got)
	}
}

func TestJSONLWriterClosed(t *testing.T) {
	w := NewJSONLWriter(t.TempDir(), "x.jsonl", 1, 1)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := w.Write("late"); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("Write() after Close error = %v; want ErrWriterClosed", err)
	}
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if st, err := os.Stat(path); err == nil && st.Size() > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s not written", path)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
