package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSystem is the slice of file operations the store needs. Tests swap
// in MemFileSystem.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// OSFileSystem is the FileSystem backed by the os package
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }
func (OSFileSystem) Rename(oldpath, newpath string) error  { return os.Rename(oldpath, newpath) }
func (OSFileSystem) Remove(name string) error              { return os.Remove(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// MemFileSystem is an in-memory FileSystem for tests. The error fields
// let a test inject failures per operation.
type MemFileSystem struct {
	mu    sync.RWMutex
	files map[string]memFile

	ReadFileError  error
	WriteFileError error
	RenameError    error
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

type memFileInfo struct {
	name string
	file memFile
}

func (fi memFileInfo) Name() string       { return fi.name }
func (fi memFileInfo) Size() int64        { return int64(len(fi.file.content)) }
func (fi memFileInfo) Mode() fs.FileMode  { return fi.file.mode }
func (fi memFileInfo) ModTime() time.Time { return fi.file.modTime }
func (fi memFileInfo) IsDir() bool        { return false }
func (fi memFileInfo) Sys() interface{}   { return nil }

// NewMemFileSystem returns an empty in-memory file system
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{files: make(map[string]memFile)}
}

func (m *MemFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return memFileInfo{name: filepath.Base(name), file: f}, nil
}

func (m *MemFileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileError != nil {
		return nil, m.ReadFileError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), f.content...), nil
}

func (m *MemFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if m.WriteFileError != nil {
		return m.WriteFileError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = memFile{content: append([]byte(nil), data...), mode: perm, modTime: time.Now()}
	return nil
}

func (m *MemFileSystem) Rename(oldpath, newpath string) error {
	if m.RenameError != nil {
		return m.RenameError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[oldpath]
	if !ok {
		return os.ErrNotExist
	}
	m.files[newpath] = f
	delete(m.files, oldpath)
	return nil
}

func (m *MemFileSystem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return os.ErrNotExist
	}
	delete(m.files, name)
	return nil
}

// Contents returns a copy of a file's bytes
func (m *MemFileSystem) Contents(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.content...), true
}
