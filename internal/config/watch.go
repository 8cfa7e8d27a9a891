package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const watchDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it is edited outside the app.
type Watcher struct {
	onChange func(*Config)
	debounce time.Duration

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func NewWatcher(onChange func(*Config)) *Watcher {
	return &Watcher{
		onChange: onChange,
		debounce: watchDebounce,
	}
}

// Start watches the config directory. Saves replace the file by rename, so
// the directory is watched rather than the file itself.
func (w *Watcher) Start(ctx context.Context) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.watcher = watcher
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx, filepath.Base(configPath))

	log.Debug().Str("dir", configDir).Msg("Watching config for changes")
	return nil
}

func (w *Watcher) loop(ctx context.Context, name string) {
	defer w.wg.Done()
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable config change")
		return
	}
	log.Debug().Msg("Config reloaded from disk")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
}
