package testutil

import (
	"context"
	"sync"

	"github.com/arthur-debert/rollover/types"
)

// FaultyTree wraps a types.Tree and injects failures per operation.
// Zero values pass every call through.
type FaultyTree struct {
	types.Tree

	mu sync.Mutex

	// FailCreate makes CreateNode and CreateMirror return (nil, nil),
	// the way a host reports an empty creation
	FailCreate bool

	// ResolveErr is returned by Resolve for the listed ids
	ResolveErr map[types.NodeID]error

	// RelocateErr is returned by every Relocate call when set
	RelocateErr error

	// TodayErr is returned by Today when set
	TodayErr error

	// OnResolve runs before every Resolve, for racing edits into a walk
	OnResolve func(id types.NodeID)

	creates int
}

// Resolve implements types.Tree
func (f *FaultyTree) Resolve(ctx context.Context, id types.NodeID) (*types.Node, error) {
	if f.OnResolve != nil {
		f.OnResolve(id)
	}
	if err, ok := f.ResolveErr[id]; ok {
		return nil, err
	}
	return f.Tree.Resolve(ctx, id)
}

// Today implements types.Tree
func (f *FaultyTree) Today(ctx context.Context) (*types.Node, error) {
	if f.TodayErr != nil {
		return nil, f.TodayErr
	}
	return f.Tree.Today(ctx)
}

// CreateNode implements types.Tree
func (f *FaultyTree) CreateNode(ctx context.Context) (*types.Node, error) {
	if f.failCreate() {
		return nil, nil
	}
	return f.Tree.CreateNode(ctx)
}

// CreateMirror implements types.Tree
func (f *FaultyTree) CreateMirror(ctx context.Context) (*types.Node, error) {
	if f.failCreate() {
		return nil, nil
	}
	return f.Tree.CreateMirror(ctx)
}

// Relocate implements types.Tree
func (f *FaultyTree) Relocate(ctx context.Context, ids []types.NodeID, dest types.NodeID, index int) error {
	if f.RelocateErr != nil {
		return f.RelocateErr
	}
	return f.Tree.Relocate(ctx, ids, dest, index)
}

// CreateAttempts returns how many creations were refused
func (f *FaultyTree) CreateAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *FaultyTree) failCreate() bool {
	if !f.FailCreate {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return true
}
