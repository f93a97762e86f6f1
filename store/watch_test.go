package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arthur-debert/rollover/types"
)

func TestWatcherReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched, err := OpenTree(path)
	if err != nil {
		t.Fatalf("OpenTree() error = %v", err)
	}
	var changes atomic.Int32
	w := NewWatcher(watched, path, func() { changes.Add(1) }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.debounce = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
		t.Fatal("watcher must not be ready before the file exists")
	case <-time.After(50 * time.Millisecond):
	}

	writer, err := OpenTree(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.AddNode(context.Background(), "", "from elsewhere", types.NotATask); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not become ready")
	}
	if ids := watched.Find(context.Background(), "from elsewhere"); len(ids) != 1 {
		t.Errorf("expected reloaded tree to contain the new node, got %v", ids)
	}
	if changes.Load() == 0 {
		t.Error("onChange was not called")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherReadyWhenFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	seed, err := OpenTree(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seed.AddNode(context.Background(), "", "seed", types.NotATask); err != nil {
		t.Fatal(err)
	}

	tree, err := OpenTree(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWatcher(tree, path, nil, nil)
	go func() { _ = w.Run(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not become ready for an existing file")
	}
}
