// Package watch reports board files that changed on disk, debounced so a
// burst of writes from one save yields one notification.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/docfile"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches board files and directories of board files.
type Watcher struct {
	log      *zap.Logger
	debounce time.Duration
	files    map[string]bool
	dirs     map[string]bool
}

// New returns a Watcher over targets. A target naming a directory matches
// every board file directly inside it; any other target is a single file,
// which need not exist yet.
func New(targets []string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{log: log, debounce: debounce, files: map[string]bool{}, dirs: map[string]bool{}}
	for _, t := range targets {
		abs, err := filepath.Abs(t)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", t, err)
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			w.dirs[abs] = true
			continue
		}
		w.files[abs] = true
	}
	if len(w.files) == 0 && len(w.dirs) == 0 {
		return nil, fmt.Errorf("watch: no targets")
	}
	return w, nil
}

// Run blocks until ctx is done, calling fn from its own goroutine with the
// path of each board file that settled after a change. Files are watched
// through their directory so an atomic rename still counts as a change.
func (w *Watcher) Run(ctx context.Context, fn func(path string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, dir := range w.watchDirs() {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.log.Debug("watching", zap.String("dir", dir))
	}

	tick := time.NewTicker(w.debounce / 2)
	defer tick.Stop()
	pending := map[string]time.Time{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			path := filepath.Clean(ev.Name)
			if !w.matches(path) {
				continue
			}
			w.log.Debug("event", zap.String("path", path), zap.String("op", ev.Op.String()))
			pending[path] = time.Now().Add(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case now := <-tick.C:
			var due []string
			for path, at := range pending {
				if !now.Before(at) {
					due = append(due, path)
				}
			}
			sort.Strings(due)
			for _, path := range due {
				delete(pending, path)
				fn(path)
			}
		}
	}
}

func (w *Watcher) matches(path string) bool {
	if w.files[path] {
		return true
	}
	return w.dirs[filepath.Dir(path)] && docfile.IsBoardFile(path) && filepath.Base(path)[0] != '.'
}

func (w *Watcher) watchDirs() []string {
	set := map[string]bool{}
	for d := range w.dirs {
		set[d] = true
	}
	for f := range w.files {
		set[filepath.Dir(f)] = true
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
