package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce groups the events of one save into one re-run.
const debounce = 100 * time.Millisecond

// Watch calls run whenever a .sql file under paths is written, created,
// removed or renamed, until ctx is cancelled. Runs never overlap.
func (e *Engine) Watch(ctx context.Context, paths []string, run func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range paths {
		if err := watchRecursive(watcher, p); err != nil {
			e.logger.Error("failed to watch path", slog.String("path", p), slog.String("error", err.Error()))
		}
	}

	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchRecursive(watcher, event.Name)
				}
			}
			if filepath.Ext(event.Name) != ".sql" || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			e.logger.Debug("file changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			run(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// watchRecursive adds path and, for a directory, all its subdirectories.
// A file is watched through its directory.
func watchRecursive(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}
