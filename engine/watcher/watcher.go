// Package watcher reports shader source changes so the frame loop can trigger a reload.
//
// File system events arrive on a background goroutine. They are coalesced until the directory has
// been quiet for the debounce interval and then a single path is offered on Changes. The goroutine
// never touches GPU state; the frame loop drains Changes and reloads on its own thread.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-march/common"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the directory must be quiet before a change is reported.
const DefaultDebounce = 100 * time.Millisecond

// Watcher delivers debounced file change notifications for a directory tree.
type Watcher interface {
	// Changes yields the last changed path of each burst of edits. At most one notification is buffered;
	// further bursts before it is received are merged into it. The channel is closed by Close.
	Changes() <-chan string

	// Close stops watching and waits for the background goroutine to exit.
	//
	// Returns:
	//   - error: the error from closing the underlying watcher, if any
	Close() error
}

// WatcherOption is a functional option for configuring a Watcher.
type WatcherOption func(*watcherImpl)

// WithDebounce sets the quiet interval. Non-positive values keep DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *watcherImpl) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter replaces the default filter, which ignores hidden files and editor backups.
//
// Parameters:
//   - keep: returns true for paths that should trigger a notification
func WithFilter(keep func(path string) bool) WatcherOption {
	return func(w *watcherImpl) {
		w.keep = keep
	}
}

type watcherImpl struct {
	fs       *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	debounce time.Duration
	keep     func(path string) bool

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

var _ Watcher = &watcherImpl{}

// New starts watching dir and every directory beneath it.
//
// Parameters:
//   - dir: the root directory
//   - options: functional options to configure the watcher
//
// Returns:
//   - Watcher: the running watcher
//   - error: if the watcher could not be created or dir could not be walked
func New(dir string, options ...WatcherOption) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &watcherImpl{
		fs:       fsw,
		changes:  make(chan string, 1),
		done:     make(chan struct{}),
		debounce: DefaultDebounce,
		keep:     defaultFilter,
	}
	for _, opt := range options {
		opt(w)
	}

	if err := w.addTree(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	common.Logger().Debug("watching shaders", "dir", dir, "debounce", w.debounce)
	return w, nil
}

func (w *watcherImpl) Changes() <-chan string {
	return w.changes
}

func (w *watcherImpl) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fs.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

// addTree registers dir and its subdirectories. fsnotify is not recursive.
func (w *watcherImpl) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *watcherImpl) loop() {
	defer w.wg.Done()
	defer close(w.changes)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						common.Logger().Warn("shader watcher", "err", err)
					}
					continue
				}
			}
			if !w.keep(event.Name) {
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- pending:
			default:
				// A notification is already waiting; the consumer will reload everything anyway.
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("shader watcher", "err", err)
		}
	}
}

func defaultFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}
