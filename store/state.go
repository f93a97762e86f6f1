package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/arthur-debert/rollover/types"
)

// State is a small durable key/value store kept in a JSON file. Every Get
// re-reads the file so values written by another process are seen.
type State struct {
	mu   sync.Mutex
	file *lockedFile
}

var _ types.SyncedStorage = (*State)(nil)

// OpenState returns the state stored at path. The file is created on the
// first Set.
func OpenState(path string, opts ...Option) *State {
	o := buildOptions(opts)
	return &State{file: newLockedFile(path, o.fs, o.lockFactory)}
}

func (s *State) load() (map[string]string, error) {
	raw, err := s.file.read()
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return values, nil
}

// Get implements types.SyncedStorage
func (s *State) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements types.SyncedStorage
func (s *State) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return s.file.write(raw)
}

// MemState is an in-memory types.SyncedStorage
type MemState struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemState returns an empty in-memory state
func NewMemState() *MemState {
	return &MemState{values: make(map[string]string)}
}

// Get implements types.SyncedStorage
func (s *MemState) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements types.SyncedStorage
func (s *MemState) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
