package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/touchline/pkg/logger"
)

// reloadDebounce collapses bursts of write events from editors and copies.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads store from the YAML dataset at path whenever the file
// changes, until ctx is done. The parent directory is watched so that
// rename-over-write saves are seen. A dataset that fails to load is logged
// and the previous contents are kept.
func Watch(ctx context.Context, path string, store *MemoryStore, log logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer func() { _ = w.Close() }()

		timer := time.NewTimer(reloadDebounce)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != abs {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(reloadDebounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn(ctx, "dataset watcher error", logger.Error(err))
			case <-timer.C:
				ds, err := LoadDataset(abs)
				if err == nil {
					err = store.Load(ds)
				}
				if err != nil {
					log.Error(ctx, "dataset reload failed", logger.String("path", abs), logger.Error(err))
					continue
				}
				log.Info(ctx, "dataset reloaded", logger.String("path", abs))
			}
		}
	}()
	return nil
}
