package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLockedFileRetriesWhileHeld(t *testing.T) {
	fs := NewMemFileSystem()
	locks := NewMemLockFactory()
	f := newLockedFile("data.json", fs, locks.New)

	held := locks.Get("data.json.lock")
	if ok, _ := held.TryLockContext(context.Background(), time.Millisecond); !ok {
		t.Fatal("could not pre-acquire lock")
	}

	err := f.write([]byte("{}"))
	if err == nil {
		t.Fatal("expected write to fail while the lock is held")
	}
	if held.Tries != lockMaxRetries+1 {
		t.Errorf("expected %d lock attempts, got %d", lockMaxRetries+1, held.Tries)
	}

	_ = held.Unlock()
	if err := f.write([]byte("{}")); err != nil {
		t.Fatalf("write() after release error = %v", err)
	}
	if held.Held() {
		t.Error("lock should be released after write")
	}
}

func TestLockedFileLockError(t *testing.T) {
	locks := NewMemLockFactory()
	locks.Get("data.json.lock").Err = errors.New("boom")
	f := newLockedFile("data.json", NewMemFileSystem(), locks.New)

	if _, err := f.read(); err == nil {
		t.Error("expected read to surface the lock error")
	}
}

func TestLockedFileMissingIsEmpty(t *testing.T) {
	f := newLockedFile("data.json", NewMemFileSystem(), NewMemLockFactory().New)
	data, err := f.read()
	if err != nil || data != nil {
		t.Errorf("read() of a missing file = %q, %v", data, err)
	}
}

func TestLockedFileReadError(t *testing.T) {
	fs := NewMemFileSystem()
	_ = fs.WriteFile("data.json", []byte("{}"), 0644)
	fs.ReadFileError = errors.New("io error")
	f := newLockedFile("data.json", fs, NewMemLockFactory().New)
	if _, err := f.read(); err == nil {
		t.Error("expected read error")
	}
}

func TestFlockFactory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	f := newLockedFile(path, OSFileSystem{}, FlockFactory)

	if err := f.write([]byte(`{"a":"b"}`)); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	data, err := f.read()
	if err != nil {
		t.Fatalf("read() error = %v", err)
	}
	if string(data) != `{"a":"b"}` {
		t.Errorf("unexpected contents %q", data)
	}
}
