package responder

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads r from path whenever the file changes, until ctx ends. The
// parent directory is watched so editors that replace the file by rename are
// seen too. A file that fails to parse leaves the current rules in place.
func Watch(ctx context.Context, path string, r *Responder) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rules watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve rules path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	slog.Info("Watch: watching rules file", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rules, err := LoadFile(abs)
			if err != nil {
				slog.Error("Watch: keeping previous rules", "path", abs, "error", err)
				continue
			}
			r.Replace(rules)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watch: watcher error", "error", err)
		}
	}
}
