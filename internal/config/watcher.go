package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the config file and applies the log level live when the
// file changes. Other settings require a restart; only verbosity is safe to
// flip under a running server.
type Watcher struct {
	configPath   string
	level        *slog.LevelVar
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	debounceTime time.Duration
}

// NewWatcher creates a watcher updating the given level var from the file at
// configPath.
func NewWatcher(configPath string, level *slog.LevelVar) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &Watcher{
		configPath:   absPath,
		level:        level,
		watcher:      w,
		stopChan:     make(chan struct{}),
		debounceTime: time.Second,
	}, nil
}

// Start begins monitoring. Watching the directory instead of the file keeps
// the watch alive across editor rename-and-replace saves.
func (w *Watcher) Start(ctx context.Context) error {
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	slog.Info("Watching config file for log level changes", "config_path", w.configPath)
	go w.watchLoop(ctx)
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing config watcher", "error", err)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(w.configPath)
	var lastReload time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if time.Since(lastReload) < w.debounceTime {
				continue
			}
			lastReload = time.Now()
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.configPath)
	if err != nil {
		slog.Warn("Ignoring config change, file does not parse", "error", err)
		return
	}

	newLevel := ParseLevel(cfg.Logging.Level)
	if w.level.Level() != newLevel {
		slog.Info("Log level changed", "level", newLevel.String())
		w.level.Set(newLevel)
	}
}
