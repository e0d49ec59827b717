package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
)

// Watcher reloads the configuration file when it changes.
type Watcher struct {
	path     string
	flags    *pflag.FlagSet
	log      *slog.Logger
	debounce time.Duration
	onChange func(*Config)

	mu      sync.RWMutex
	current *Config
	fsw     *fsnotify.Watcher
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the logger for reload outcomes.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) { w.log = l }
}

// WithDebounce sets how long the watcher waits for writes to settle.
// Default is 100ms.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// OnChange registers fn to run with every successfully reloaded config.
func OnChange(fn func(*Config)) WatchOption {
	return func(w *Watcher) { w.onChange = fn }
}

// Watch loads path and returns a Watcher that keeps it current. The
// directory is watched rather than the file so editors that replace the
// file on save are seen.
func Watch(path string, flags *pflag.FlagSet, opts ...WatchOption) (*Watcher, error) {
	cfg, err := Load(path, flags)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		flags:    flags,
		log:      slog.Default(),
		debounce: 100 * time.Millisecond,
		current:  cfg,
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Config returns the last loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run processes file events until ctx is done. A reload that fails keeps
// the previous configuration.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", "path", w.path, "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path, w.flags)
	if err != nil {
		w.log.Warn("config reload failed", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	w.log.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
