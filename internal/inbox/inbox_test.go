package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestIgnored(t *testing.T) {
	tests := map[string]bool{
		"week-a.png":          false,
		"/in/Timetable.DOCX":  false,
		".DS_Store":           true,
		"~$timetable.docx":    true,
		"scan.pdf.part":       true,
		"upload.crdownload":   true,
		"/tmp/inbox/file.tmp": true,
	}
	for path, want := range tests {
		if got := Ignored(path); got != want {
			t.Errorf("Ignored(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.pdf", ".hidden", "c.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Existing(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.png")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Existing() = %v, want %v", got, want)
	}

	if _, err := Existing(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing dir")
	}
}

func TestSettled(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"old":   now.Add(-time.Second),
		"fresh": now.Add(-10 * time.Millisecond),
		"older": now.Add(-2 * time.Second),
	}
	got := settled(pending, now, 500*time.Millisecond)
	if len(got) != 2 || got[0] != "old" || got[1] != "older" {
		t.Errorf("settled() = %v", got)
	}
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "already.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var seen []string
	got := make(chan struct{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(dir, Options{Settle: 50 * time.Millisecond, Existing: true})
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) {
			mu.Lock()
			seen = append(seen, filepath.Base(path))
			mu.Unlock()
			got <- struct{}{}
		})
	}()

	waitFor := func() {
		t.Helper()
		select {
		case <-got:
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for watcher")
		}
	}

	waitFor() // already.png

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, ".partial"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "week-b.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "already.png" || seen[1] != "week-b.pdf" {
		t.Errorf("seen = %v", seen)
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), Options{})
	if err := w.Run(context.Background(), func(string) {}); err == nil {
		t.Error("expected error for missing directory")
	}
}
