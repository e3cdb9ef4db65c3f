package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of filesystem events an editor save
// or atomic rename produces into one reload.
const debounceWindow = 250 * time.Millisecond

// ConfigWatcher reloads the config store when yaml files under the config
// directory change and notifies listeners through ReloadChan.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configDir  string
	logger     *slog.Logger
	reloadChan chan struct{}
}

var (
	globalWatcher *ConfigWatcher
	watcherMu     sync.Mutex
)

// StartWatcher begins watching configDir and its subdirectories. Only one
// watcher runs per process; repeated calls return the existing one.
func StartWatcher(configDir string, logger *slog.Logger) (*ConfigWatcher, error) {
	watcherMu.Lock()
	defer watcherMu.Unlock()

	if globalWatcher != nil {
		return globalWatcher, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:    watcher,
		configDir:  configDir,
		logger:     logger,
		reloadChan: make(chan struct{}, 1),
	}

	if err := filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch()
	globalWatcher = cw
	return cw, nil
}

// ReloadChan delivers one signal per successful reload. Slow listeners may
// see reloads coalesced.
func (cw *ConfigWatcher) ReloadChan() <-chan struct{} {
	return cw.reloadChan
}

func (cw *ConfigWatcher) watch() {
	var pending *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !relevantEvent(event) {
				continue
			}

			cw.logger.Info("detected configuration change", "path", event.Name)
			if pending == nil {
				pending = time.NewTimer(debounceWindow)
				fire = pending.C
			} else {
				pending.Reset(debounceWindow)
			}

		case <-fire:
			pending = nil
			fire = nil
			cw.reload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("watcher error", "error", err)
		}
	}
}

// relevantEvent filters out hidden files, non-yaml files and pure chmod
// noise. Remove and rename count: atomic saves replace the file.
func relevantEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".yaml") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (cw *ConfigWatcher) reload() {
	if err := LoadConfigs(cw.configDir); err != nil {
		// Keep serving the last good configs.
		cw.logger.Error("failed to reload configurations", "error", err)
		return
	}

	cw.logger.Info("configurations reloaded")

	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

// Stop stops the configuration watcher.
func (cw *ConfigWatcher) Stop() error {
	watcherMu.Lock()
	defer watcherMu.Unlock()

	if cw.watcher != nil {
		if err := cw.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
		cw.watcher = nil
	}

	if globalWatcher == cw {
		globalWatcher = nil
	}

	return nil
}
