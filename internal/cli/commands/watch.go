package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// watchFile calls onChange after path is written, debounced. The parent
// directory is watched so editors that save by rename are picked up.
// It blocks until ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(context.Context)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	logger.Debug("watching file", slog.String("path", abs))

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		events = watcher.Events
		errs   = watcher.Errors
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			onChange(ctx)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
