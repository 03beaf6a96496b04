// Package watch monitors directories for new log files and triggers
// conversion as they appear.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logtab/logtab/pkg/errors"
)

// DefaultExtension is the log file extension the watcher reacts to.
const DefaultExtension = ".wpilog"

// Watcher monitors directories and invokes OnLog when a matching file is
// created or finishes being written.
type Watcher struct {
	watcher   *fsnotify.Watcher
	extension string
	debounce  time.Duration

	mu   sync.Mutex
	seen map[string]os.FileInfo

	// OnLog is called with the path of a new or changed log file.
	OnLog func(path string) error

	// OnError is called for watch errors and failed conversions.
	OnError func(path string, err error)
}

// NewWatcher creates a watcher for files with the given extension.
func NewWatcher(extension string) (*Watcher, error) {
	if extension == "" {
		extension = DefaultExtension
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to create watcher")
	}
	return &Watcher{
		watcher:   fsWatcher,
		extension: extension,
		debounce:  500 * time.Millisecond,
		seen:      make(map[string]os.FileInfo),
	}, nil
}

// Add starts watching a directory.
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrap(err, errors.CodeFileNotFound, "failed to resolve directory").
			WithContext("dir", dir)
	}
	if err := w.watcher.Add(abs); err != nil {
		return errors.Wrap(err, errors.CodeFileNotFound, "failed to watch directory").
			WithContext("dir", abs)
	}
	return nil
}

// Run blocks processing events until ctx is canceled. Writes are debounced
// so a file still being flushed by the logger is converted once, after it
// settles.
func (w *Watcher) Run(ctx context.Context) error {
	timers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, w.extension) {
				continue
			}

			path := event.Name
			timerMu.Lock()
			if timer, exists := timers[path]; exists {
				timer.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				w.handle(path)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handle(path string) {
	stat, err := os.Stat(path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}

	w.mu.Lock()
	prev, known := w.seen[path]
	if known && prev.ModTime().Equal(stat.ModTime()) && prev.Size() == stat.Size() {
		w.mu.Unlock()
		return
	}
	w.seen[path] = stat
	w.mu.Unlock()

	if w.OnLog != nil {
		if err := w.OnLog(path); err != nil && w.OnError != nil {
			w.OnError(path, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
