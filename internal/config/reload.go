package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce coalesces the write bursts editors produce when
// saving a file.
const DefaultReloadDebounce = 500 * time.Millisecond

// WatchOptions tunes the file watcher.
type WatchOptions struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch re-reads the configuration file whenever it changes and invokes
// onReload with the fresh value. It blocks until ctx is cancelled. Reload
// failures keep the previous configuration in force.
//
// The parent directory is watched rather than the file itself: editors that
// replace the file via rename would otherwise silently detach the watch.
func Watch(ctx context.Context, path string, opts WatchOptions, onReload func(*Config)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultReloadDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	log.Info("config: watching", "path", target, "debounce", opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(opts.Debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			cfg, err := LoadFile(path)
			if err != nil {
				log.Error("config: reload failed, keeping previous", "error", err)
				continue
			}
			log.Info("config: reloaded", "path", target)
			onReload(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config: watcher error", "error", err)
		}
	}
}
