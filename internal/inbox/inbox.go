// Package inbox watches a drop folder and reports documents once they stop
// changing.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must be quiet before it is reported.
const DefaultSettle = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Settle delays reporting until no write has been seen for this long.
	Settle time.Duration
	// Existing reports files already in the folder when Run starts.
	Existing bool
	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// Watcher reports new or rewritten files in a single directory.
type Watcher struct {
	dir      string
	settle   time.Duration
	existing bool
	logger   *slog.Logger
}

// New creates a watcher for dir.
func New(dir string, opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{dir: dir, settle: settle, existing: opts.Existing, logger: logger.With("inbox", dir)}
}

// Run calls fn for every settled document until ctx is cancelled. fn runs on
// the watcher goroutine and should hand work off quickly.
func (w *Watcher) Run(ctx context.Context, fn func(path string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for timetables")

	if w.existing {
		files, err := Existing(w.dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fn(f)
		}
	}

	pending := make(map[string]time.Time)
	tick := time.NewTicker(w.settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					delete(pending, ev.Name)
				}
				continue
			}
			if Ignored(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case now := <-tick.C:
			for _, path := range settled(pending, now, w.settle) {
				delete(pending, path)
				info, err := os.Stat(path)
				if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
					continue
				}
				w.logger.Debug("document settled", "path", path, "bytes", info.Size())
				fn(path)
			}
		}
	}
}

// settled returns pending paths quiet for at least d, sorted.
func settled(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var out []string
	for path, last := range pending {
		if now.Sub(last) >= d {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Existing lists the documents currently in dir, sorted.
func Existing(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && !Ignored(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// Ignored reports whether a file is hidden or an editor/download temp file.
func Ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".tmp", ".part", ".crdownload", ".swp":
		return true
	}
	return false
}
