package rulesdsl

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher reloads a rule pack when it changes on disk and publishes the new
// library through Holder. A pack that fails to load leaves the current
// library in place.
type Watcher struct {
	Path     string
	Base     *patterns.Library
	Holder   *patterns.Holder
	Logger   *slog.Logger
	Debounce time.Duration

	// Build, when set, replaces Load(Path, Base). Use it when the library
	// is assembled from several packs.
	Build func() (*patterns.Library, error)

	// OnReload, when set, is called after every reload attempt.
	OnReload func(*patterns.Library, error)
}

// Run blocks until ctx is cancelled. The pack's directory is watched rather
// than the file so editors that save by rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", target, err)
	}

	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(log)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("rules watch error", "path", target, "err", err)
		}
	}
}

func (w *Watcher) reload(log *slog.Logger) {
	var lib *patterns.Library
	var err error
	if w.Build != nil {
		lib, err = w.Build()
	} else {
		lib, err = Load(w.Path, w.Base)
	}
	if err != nil {
		log.Error("rules reload failed; keeping current library", "path", w.Path, "err", err)
	} else {
		w.Holder.Store(lib)
		log.Info("rules reloaded", "path", w.Path, "version", lib.Version(), "rules", lib.Len())
	}
	if w.OnReload != nil {
		w.OnReload(lib, err)
	}
}
