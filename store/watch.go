package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a Tree whenever its file is rewritten by another process
// and signals readiness once the file exists and loaded cleanly.
//
// The parent directory is watched rather than the file itself because
// atomic rewrites replace the file's inode.
type Watcher struct {
	tree     *Tree
	path     string
	debounce time.Duration
	logger   *slog.Logger
	onChange func()

	ready     chan struct{}
	readyOnce sync.Once
}

// NewWatcher creates a watcher for the tree stored at path. onChange may be
// nil; it runs after every successful reload.
func NewWatcher(tree *Tree, path string, onChange func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		tree:     tree,
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		logger:   logger,
		onChange: onChange,
		ready:    make(chan struct{}),
	}
}

// Ready is closed after the tree file has been loaded at least once
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

func (w *Watcher) markReady() {
	w.readyOnce.Do(func() { close(w.ready) })
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	// The file may already be there from before we started.
	if _, err := w.tree.opts.fs.Stat(w.path); err == nil {
		w.reload()
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("tree watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if err := w.tree.Reload(); err != nil {
		w.logger.Warn("failed to reload tree", "path", w.path, "error", err)
		return
	}
	w.logger.Debug("tree reloaded", "path", w.path)
	w.markReady()
	if w.onChange != nil {
		w.onChange()
	}
}
