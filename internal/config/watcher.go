package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// Watcher watches a config file for changes and reloads it
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	mu       sync.RWMutex
	config   *Config
	digest   uint64
	handlers []func(*Config)
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher loads path and prepares to watch it for changes
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory so atomic saves (write temp, rename) are seen
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		path:    filepath.Clean(path),
		watcher: w,
		logger:  logger,
		config:  cfg,
		digest:  xxhash.Sum64(data),
		done:    make(chan struct{}),
	}, nil
}

// Start starts watching for config file changes
func (w *Watcher) Start() {
	go w.watch()
}

// Stop stops the config watcher
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// OnReload registers a handler to be called when config is reloaded
func (w *Watcher) OnReload(handler func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Get returns the current config
func (w *Watcher) Get() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			// Reload on write or create (some editors do atomic saves via rename)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "err", err)
		}
	}
}

// reload re-reads the file and notifies handlers. It returns false when the
// content is unchanged or invalid.
func (w *Watcher) reload() bool {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Error("failed to reload config", "path", w.path, "err", err)
		return false
	}

	digest := xxhash.Sum64(data)
	w.mu.RLock()
	unchanged := digest == w.digest
	w.mu.RUnlock()
	if unchanged {
		w.logger.Debug("config unchanged", "path", w.path)
		return false
	}

	cfg, err := Parse(data)
	if err != nil {
		w.logger.Error("failed to reload config", "path", w.path, "err", err)
		return false
	}

	w.mu.Lock()
	w.config = cfg
	w.digest = digest
	handlers := make([]func(*Config), len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)

	for _, handler := range handlers {
		handler(cfg)
	}
	return true
}
