// Package levelwatch retunes the process log level at runtime by watching a
// file. Writing a level word ("debug", "info", "warn", "error") to the
// watched file flips the handler's LevelVar without a restart, which keeps
// verbose logging one file edit away in production.
package levelwatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ParseLevel maps a level word to its slog value. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", strings.TrimSpace(s))
}

// Watcher applies the contents of one file to a slog.LevelVar.
type Watcher struct {
	path  string
	level *slog.LevelVar
	log   *slog.Logger
}

// New returns a Watcher for path. The file does not need to exist yet; the
// level changes once it appears.
func New(path string, level *slog.LevelVar, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{path: path, level: level, log: log}
}

// Run applies the file's current contents, then blocks watching for changes
// until ctx is cancelled. Editors and config managers replace files by
// renaming a temp file over them, so the watch covers the containing
// directory rather than the file inode itself.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() {
		// Best-effort watcher close; no actionable error handling path.
		_ = fw.Close()
	}()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.apply()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.apply()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Debug("levelwatch.watch.fail", slog.String("err", err.Error()))
		}
	}
}

// apply reads the file and updates the level. A missing file or malformed
// contents leave the current level in place.
func (w *Watcher) apply() {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Debug("levelwatch.read.fail", slog.String("err", err.Error()))
		return
	}
	lvl, err := ParseLevel(string(raw))
	if err != nil {
		w.log.Debug("levelwatch.parse.fail", slog.String("err", err.Error()))
		return
	}
	if w.level.Level() == lvl {
		return
	}
	w.level.Set(lvl)
	w.log.Info("levelwatch.level.changed", slog.String("level", lvl.String()))
}
