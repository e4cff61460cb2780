// Package watch re-loads a store whenever its backing document file changes
// on disk. It sits outside the synchronous core: one goroutine per watcher,
// change events still flow through the store's own hooks.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	confstore "github.com/goliatone/go-confstore"
	"github.com/goliatone/go-confstore/pkg/inidoc"
)

// Loader is the store-side contract; *confstore.Store and
// *confstore.ExternalStore satisfy it.
type Loader interface {
	Load(doc *confstore.Document) (*confstore.ChangeEvent, error)
}

// DecodeFunc parses the watched file into a document.
type DecodeFunc func(path string) (*confstore.Document, error)

// Option configures a watcher.
type Option func(*Watcher)

// WithDecode replaces the default INI decoder.
func WithDecode(decode DecodeFunc) Option {
	return func(w *Watcher) {
		if decode != nil {
			w.decode = decode
		}
	}
}

// WithErrorHandler receives decode and load failures; the default drops them.
func WithErrorHandler(handler func(error)) Option {
	return func(w *Watcher) {
		if handler != nil {
			w.onError = handler
		}
	}
}

// Watcher reloads one file into one loader.
type Watcher struct {
	path    string
	loader  Loader
	decode  DecodeFunc
	onError func(error)

	fs      *fsnotify.Watcher
	mu      sync.Mutex
	started bool
}

// New prepares a watcher for path. Nothing runs until Start.
func New(path string, loader Loader, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watch: path is required")
	}
	if loader == nil {
		return nil, fmt.Errorf("watch: loader is required")
	}
	w := &Watcher{
		path:    filepath.Clean(path),
		loader:  loader,
		decode:  inidoc.ReadFile,
		onError: func(error) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start watches the file's directory (editors replace files rather than
// write in place) and reloads on every write or create of the file until ctx
// is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("watch: already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch: add %q: %w", filepath.Dir(w.path), err)
	}
	w.fs = fsw
	w.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	go w.run(ctx, fsw)
	return nil
}

// Close stops the watcher. Safe to call before Start or more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fs == nil {
		return nil
	}
	err := w.fs.Close()
	w.fs = nil
	return err
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(fmt.Errorf("watch: %w", err))
		}
	}
}

func (w *Watcher) reload() {
	doc, err := w.decode(w.path)
	if err != nil {
		w.onError(fmt.Errorf("watch: decode %q: %w", w.path, err))
		return
	}
	if _, err := w.loader.Load(doc); err != nil {
		w.onError(fmt.Errorf("watch: load %q: %w", w.path, err))
	}
}
