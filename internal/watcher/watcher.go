// Package watcher provides file system watching and per-path debouncing for
// the planning directory tree.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ClaytonHunt/cascade/internal/record"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreated indicates a new record file appeared.
	OpCreated EventOp = iota
	// OpChanged indicates an existing record file was written.
	OpChanged
	// OpDeleted indicates a record file was removed or renamed away.
	OpDeleted
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreated:
		return "created"
	case OpChanged:
		return "changed"
	case OpDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is a file system event for one record file. The OS may deliver
// duplicates and OS-native separators/casing; consumers key everything by
// record.NormalizePath.
type Event struct {
	// Path is the path of the file that changed, as delivered by the OS.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// Watcher watches a planning directory tree for record file changes. It
// wraps fsnotify, filters to ID-named *.md files, and follows directory
// creation so new subtrees are watched too.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	root    string
}

// New creates a Watcher. It must be started with Start before it emits
// events.
func New() (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: inner,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching root and every directory beneath it.
func (w *Watcher) Start(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.root = root

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching and blocks until the event loop has exited. The
// Events and Errors channels are closed afterwards.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

// Events returns the channel that emits record file events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel that emits watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsRunning reports whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents converts fsnotify events to record file events.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// A newly created directory must be watched before files
			// appear inside it.
			if event.Has(fsnotify.Create) {
				if w.maybeWatchDir(event.Name) {
					continue
				}
			}

			fileEvent, ok := w.convertEvent(event)
			if !ok {
				continue
			}

			select {
			case w.events <- fileEvent:
			case <-w.done:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// maybeWatchDir adds a watch when name is a directory. Returns true when the
// event was consumed as a directory creation.
func (w *Watcher) maybeWatchDir(name string) bool {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return false
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return true
	}
	if err := w.watcher.Add(name); err != nil {
		select {
		case w.errors <- fmt.Errorf("failed to watch new directory %s: %w", name, err):
		default:
		}
	}
	return true
}

// convertEvent maps an fsnotify event onto a record file Event.
// Returns (Event{}, false) for events the engine does not care about.
func (w *Watcher) convertEvent(event fsnotify.Event) (Event, bool) {
	if filepath.Ext(event.Name) != ".md" {
		return Event{}, false
	}
	if _, ok := record.KindForPath(event.Name); !ok {
		return Event{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreated
	case event.Has(fsnotify.Write):
		op = OpChanged
	case event.Has(fsnotify.Remove):
		op = OpDeleted
	case event.Has(fsnotify.Rename):
		// The new name triggers a separate create.
		op = OpDeleted
	default:
		// Chmod and friends.
		return Event{}, false
	}

	return Event{Path: event.Name, Op: op}, true
}
