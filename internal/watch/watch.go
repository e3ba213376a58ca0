// Package watch provides source file watching for recompile-on-change,
// built on OS-native notifications.
package watch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event reports a change to a watched path.
type Event struct {
	Path string
}

// Watcher delivers debounced change events for a set of source files.
type Watcher struct {
	w   *fsnotify.Watcher
	evC chan Event
	erC chan error
}

// New creates a watcher for the given paths.
func New(paths ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &Watcher{w: w, evC: make(chan Event, 16), erC: make(chan error, 1)}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, err
		}
	}
	go fw.loop()
	return fw, nil
}

func (fw *Watcher) loop() {
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				close(fw.evC)
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fw.evC <- Event{Path: ev.Name}
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.erC <- err
		}
	}
}

// Events returns the change event channel.
func (fw *Watcher) Events() <-chan Event { return fw.evC }

// Errors returns the watcher error channel.
func (fw *Watcher) Errors() <-chan error { return fw.erC }

// Add starts watching an additional path.
func (fw *Watcher) Add(path string) error { return fw.w.Add(path) }

// Close stops the watcher.
func (fw *Watcher) Close() error { return fw.w.Close() }

// Run invokes onChange for every change until the context is canceled.
// Bursts of events within the debounce window collapse into one call;
// editors often emit several writes per save.
func (fw *Watcher) Run(ctx context.Context, debounce time.Duration, onChange func(Event)) error {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	var pending *Event
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-fw.erC:
			return err
		case ev, ok := <-fw.evC:
			if !ok {
				return nil
			}
			pending = &ev
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		case <-timer.C:
			if pending != nil {
				onChange(*pending)
				pending = nil
			}
		}
	}
}
