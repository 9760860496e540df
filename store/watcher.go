package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/fhirstore/observe"
)

// Change describes a modification to a registered dataset file.
type Change struct {
	Dataset string
	Types   []string
	Op      fsnotify.Op
}

// Watcher reports changes to registered dataset files in a directory.
// Files not named by the registry are ignored.
type Watcher struct {
	registry *Registry
	logger   observe.Logger
	fsw      *fsnotify.Watcher

	mu        sync.Mutex
	callbacks []func(context.Context, Change)
}

// NewWatcher starts watching dir. Call Run to deliver events and Close to stop.
func NewWatcher(dir string, reg *Registry, logger observe.Logger) (*Watcher, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if logger == nil {
		logger = observe.NewNopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("store: watch %s: %w", dir, err)
	}
	return &Watcher{
		registry: reg,
		logger:   logger.With(observe.F("dir", dir)),
		fsw:      fsw,
	}, nil
}

// OnChange registers a callback. Callbacks run on the Run goroutine in
// registration order.
func (w *Watcher) OnChange(fn func(context.Context, Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if c, ok := w.classify(ev); ok {
				w.notify(ctx, c)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "dataset watcher error", observe.Err(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) classify(ev fsnotify.Event) (Change, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return Change{}, false
	}
	name := filepath.Base(ev.Name)
	types := w.registry.TypesFor(name)
	if len(types) == 0 {
		return Change{}, false
	}
	return Change{Dataset: name, Types: types, Op: ev.Op}, true
}

func (w *Watcher) notify(ctx context.Context, c Change) {
	w.logger.Debug(ctx, "dataset changed",
		observe.F("dataset", c.Dataset), observe.F("op", c.Op.String()))

	w.mu.Lock()
	callbacks := make([]func(context.Context, Change), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(ctx, c)
	}
}
