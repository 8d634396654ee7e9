// Package watcher follows the active-version pointer and reports changes.
//
// The pointer is replaced by rename, so the watch is placed on the store root
// rather than on the pointer file: a watch on the file itself would be lost
// with the old inode on the first switch.
//
// Example usage:
//
//	w, err := watcher.New(pointer, logger)
//	if err != nil {
//		return err
//	}
//	if err := w.Start(); err != nil {
//		return err
//	}
//	defer w.Stop()
//
//	for change := range w.Changes() {
//		fmt.Println(change.Version)
//	}
package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/bvm/internal/registry"
)

// Change is one observed value of the pointer.
type Change struct {
	Version registry.Version
	Path    string
	Active  bool // false once the pointer has been cleared
}

// Watcher emits a Change whenever the active version differs from the last
// one reported.
type Watcher struct {
	pointer *registry.Pointer
	logger  *slog.Logger

	fsw     *fsnotify.Watcher
	changes chan Change
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	last Change
}

// New creates a Watcher for pointer.
func New(pointer *registry.Pointer, logger *slog.Logger) (*Watcher, error) {
	if pointer == nil {
		return nil, fmt.Errorf("pointer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		pointer: pointer,
		logger:  logger,
		changes: make(chan Change, 16),
		stopCh:  make(chan struct{}),
	}, nil
}

// Changes returns the change stream. It is closed after Stop.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Current reads the pointer as a Change.
func (w *Watcher) Current() (Change, error) {
	path, ok, err := w.pointer.Get()
	if err != nil || !ok {
		return Change{}, err
	}
	v, _, err := w.pointer.Version()
	if err != nil {
		return Change{}, err
	}
	return Change{Version: v, Path: path, Active: true}, nil
}

// Start begins watching. The value at start time is taken as the baseline
// and is not emitted.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	root := filepath.Dir(w.pointer.File())
	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	w.fsw = fsw

	if w.last, err = w.Current(); err != nil {
		w.logger.Warn("watcher: initial pointer read", "error", err)
	}

	w.wg.Add(1)
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	defer close(w.changes)

	name := filepath.Base(w.pointer.File())
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			w.logger.Debug("watcher: pointer event", "op", ev.Op.String())
			w.emitIfChanged()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher: file watch error", "error", err)

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) emitIfChanged() {
	c, err := w.Current()
	if err != nil {
		w.logger.Warn("watcher: pointer read failed", "error", err)
		return
	}
	if c == w.last {
		return
	}
	w.last = c
	select {
	case w.changes <- c:
	case <-w.stopCh:
	}
}

// Stop halts the watcher and closes the change stream.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.stopCh)
		if w.fsw != nil {
			err = w.fsw.Close()
		}
		w.wg.Wait()
	})
	return err
}
