package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileLock is a cross-process exclusive lock
type FileLock interface {
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)
	Unlock() error
}

// LockFactory creates a FileLock for a lock file path
type LockFactory func(path string) FileLock

// FlockFactory is the default LockFactory, backed by github.com/gofrs/flock
func FlockFactory(path string) FileLock {
	return flock.New(path)
}

// MemLock is an in-process FileLock for tests
type MemLock struct {
	mu       sync.Mutex
	held     bool
	Err      error // returned from every lock attempt when set
	Tries    int
	Releases int
}

// TryLockContext implements FileLock
func (l *MemLock) TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Tries++
	if l.Err != nil {
		return false, l.Err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

// Unlock implements FileLock
func (l *MemLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Releases++
	l.held = false
	return nil
}

// Held reports whether the lock is currently taken
func (l *MemLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// MemLockFactory hands out one MemLock per path
type MemLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MemLock
}

// NewMemLockFactory returns an empty factory
func NewMemLockFactory() *MemLockFactory {
	return &MemLockFactory{locks: make(map[string]*MemLock)}
}

// New is a LockFactory
func (f *MemLockFactory) New(path string) FileLock {
	return f.Get(path)
}

// Get returns the lock for path, creating it on first use
func (f *MemLockFactory) Get(path string) *MemLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[path]
	if !ok {
		l = &MemLock{}
		f.locks[path] = l
	}
	return l
}

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// lockedFile reads and atomically rewrites one file under a sibling
// ".lock" file
type lockedFile struct {
	path string
	fs   FileSystem
	lock FileLock
}

func newLockedFile(path string, fsys FileSystem, factory LockFactory) *lockedFile {
	return &lockedFile{path: path, fs: fsys, lock: factory(path + ".lock")}
}

func (f *lockedFile) acquire(ctx context.Context) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

func (f *lockedFile) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	if err := f.acquire(ctx); err != nil {
		return err
	}
	defer func() { _ = f.lock.Unlock() }()
	return fn()
}

// read returns the file contents; a missing or empty file yields nil
func (f *lockedFile) read() ([]byte, error) {
	var data []byte
	err := f.withLock(func() error {
		if _, err := f.fs.Stat(f.path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		b, err := f.fs.ReadFile(f.path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		data = b
		return nil
	})
	return data, err
}

// write replaces the file via a temp file and rename
func (f *lockedFile) write(data []byte) error {
	return f.withLock(func() error {
		tmp := f.path + ".tmp"
		if err := f.fs.WriteFile(tmp, data, fs.FileMode(0644)); err != nil {
			return fmt.Errorf("failed to write temp file: %w", err)
		}
		if err := f.fs.Rename(tmp, f.path); err != nil {
			_ = f.fs.Remove(tmp)
			return fmt.Errorf("failed to rename file: %w", err)
		}
		return nil
	})
}
