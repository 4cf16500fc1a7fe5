// Package watch reports changes to a single file.
//
// The parent directory is watched rather than the file, so editors that
// save by writing a temp file and renaming it over the original are seen.
// Bursts of events are collapsed: the callback runs once the file has been
// quiet for the debounce interval.
package watch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when a Watcher is built with a zero interval.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches one file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger
}

// New returns a watcher for path. A nil logger discards output.
func New(path string, debounce time.Duration, logger *log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce, logger: logger}
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Run calls onChange after each settled change until ctx is done.
// Callbacks run on the Run goroutine, one at a time. Run returns nil when
// ctx is canceled.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching", "file", w.path, "debounce", w.debounce)

	var (
		timer *time.Timer
		fire  <-chan time.Time
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

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("file event", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Info("file changed", "file", w.path)
			onChange(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
