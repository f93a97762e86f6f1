// Package store provides a file-backed host for the rollover engine: a JSON
// note tree implementing types.Tree and a small key/value state file
// implementing types.SyncedStorage. Both are guarded by a cross-process
// file lock and rewritten atomically on every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arthur-debert/rollover/types"
	"github.com/google/uuid"
)

// ErrNotMirror is returned when linking into a node that is not a mirror root
var ErrNotMirror = errors.New("node is not a mirror root")

// ErrCycle is returned when a relocation would put a node inside itself
var ErrCycle = errors.New("relocation would create a cycle")

// treeData is the on-disk layout of a tree file
type treeData struct {
	Nodes    map[types.NodeID]*record `json:"nodes"`
	Order    []types.NodeID           `json:"order"` // creation order, used for enumeration
	Roots    []types.NodeID           `json:"roots"`
	Metadata Metadata                 `json:"metadata"`
}

// Metadata contains file metadata
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type record struct {
	ID        types.NodeID                       `json:"id"`
	Text      string                             `json:"text"`
	Status    string                             `json:"status,omitempty"`
	Parent    types.NodeID                       `json:"parent,omitempty"`
	Children  []types.NodeID                     `json:"children,omitempty"`
	Markers   map[types.Marker]map[string]string `json:"markers,omitempty"`
	Mirror    bool                               `json:"mirror,omitempty"`
	Links     []types.NodeID                     `json:"links,omitempty"`
	CreatedAt time.Time                          `json:"created_at"`
}

// Tree is a note tree persisted as a single JSON file
type Tree struct {
	mu   sync.RWMutex
	file *lockedFile // nil for memory-only trees
	opts *options
	data *treeData
}

var _ types.Tree = (*Tree)(nil)

// OpenTree loads the tree stored at path. A missing file yields an empty
// tree that is created on the first mutation.
func OpenTree(path string, opts ...Option) (*Tree, error) {
	t := newTree(buildOptions(opts))
	t.file = newLockedFile(path, t.opts.fs, t.opts.lockFactory)
	if err := t.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return t, nil
}

// NewMemoryTree returns an empty tree that is never persisted
func NewMemoryTree(opts ...Option) *Tree {
	return newTree(buildOptions(opts))
}

func newTree(o *options) *Tree {
	if o.idFunc == nil {
		o.idFunc = uuid.NewString
	}
	now := o.timeFunc()
	return &Tree{
		opts: o,
		data: &treeData{
			Nodes:    make(map[types.NodeID]*record),
			Metadata: Metadata{Version: "1.0", CreatedAt: now, UpdatedAt: now},
		},
	}
}

// Reload re-reads the file, discarding the in-memory state
func (t *Tree) Reload() error {
	if t.file == nil {
		return nil
	}
	raw, err := t.file.read()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	var data treeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if data.Nodes == nil {
		data.Nodes = make(map[types.NodeID]*record)
	}
	t.mu.Lock()
	t.data = &data
	t.mu.Unlock()
	return nil
}

// mutate applies fn and persists the result. On failure the previous
// state is restored.
func (t *Tree) mutate(fn func(d *treeData) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, err := json.Marshal(t.data)
	if err != nil {
		return fmt.Errorf("failed to snapshot tree: %w", err)
	}
	restore := func() {
		var d treeData
		if json.Unmarshal(prev, &d) == nil {
			t.data = &d
		}
	}

	if err := fn(t.data); err != nil {
		restore()
		return err
	}
	if t.file == nil {
		return nil
	}
	t.data.Metadata.UpdatedAt = t.opts.timeFunc()
	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		restore()
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := t.file.write(raw); err != nil {
		restore()
		return err
	}
	return nil
}

func (t *Tree) view(fn func(d *treeData) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fn(t.data)
}

func notFound(id types.NodeID) error {
	return fmt.Errorf("%w: %s", types.ErrNodeNotFound, id)
}

func (d *treeData) get(id types.NodeID) (*record, error) {
	r, ok := d.Nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	return r, nil
}

func (r *record) snapshot() *types.Node {
	n := &types.Node{
		ID:       r.ID,
		Text:     r.Text,
		Status:   types.ParseTaskStatus(r.Status),
		Children: append([]types.NodeID(nil), r.Children...),
		Links:    append([]types.NodeID(nil), r.Links...),
	}
	if len(r.Markers) > 0 {
		n.Markers = make(map[types.Marker]map[string]string, len(r.Markers))
		for m, props := range r.Markers {
			cp := make(map[string]string, len(props))
			for k, v := range props {
				cp[k] = v
			}
			n.Markers[m] = cp
		}
	}
	return n
}

func (d *treeData) create(id types.NodeID, text string, mirror bool, at time.Time) *record {
	r := &record{ID: id, Text: text, Mirror: mirror, CreatedAt: at}
	d.Nodes[id] = r
	d.Order = append(d.Order, id)
	d.Roots = append(d.Roots, id)
	return r
}

// detach removes id from its parent's children (or from the roots)
func (d *treeData) detach(r *record) {
	if r.Parent == "" {
		d.Roots = without(d.Roots, r.ID)
		return
	}
	if p, ok := d.Nodes[r.Parent]; ok {
		p.Children = without(p.Children, r.ID)
	}
	r.Parent = ""
}

// isWithin reports whether id is node or one of its descendants
func (d *treeData) isWithin(id, node types.NodeID) bool {
	for cur := id; cur != ""; {
		if cur == node {
			return true
		}
		r, ok := d.Nodes[cur]
		if !ok {
			return false
		}
		cur = r.Parent
	}
	return false
}

func without(ids []types.NodeID, id types.NodeID) []types.NodeID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertAt(ids []types.NodeID, index int, id types.NodeID) []types.NodeID {
	if index < 0 {
		index = 0
	}
	if index >= len(ids) {
		return append(ids, id)
	}
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}

// Resolve implements types.Tree
func (t *Tree) Resolve(ctx context.Context, id types.NodeID) (*types.Node, error) {
	var n *types.Node
	err := t.view(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		n = r.snapshot()
		return nil
	})
	return n, err
}

// Tagged implements types.Tree. Nodes are returned in creation order.
func (t *Tree) Tagged(ctx context.Context, m types.Marker) ([]*types.Node, error) {
	var out []*types.Node
	err := t.view(func(d *treeData) error {
		for _, id := range d.Order {
			r, ok := d.Nodes[id]
			if !ok {
				continue
			}
			if _, tagged := r.Markers[m]; tagged {
				out = append(out, r.snapshot())
			}
		}
		return nil
	})
	return out, err
}

// Today implements types.Tree: the first daily document whose Timestamp
// falls on the current day
func (t *Tree) Today(ctx context.Context) (*types.Node, error) {
	now := t.opts.timeFunc()
	var today *types.Node
	err := t.view(func(d *treeData) error {
		for _, id := range d.Order {
			r, ok := d.Nodes[id]
			if !ok {
				continue
			}
			ts, ok := dailyTimestamp(r)
			if !ok {
				continue
			}
			if sameDay(ts, now) {
				today = r.snapshot()
				return nil
			}
		}
		return nil
	})
	return today, err
}

// AddMarker implements types.Tree
func (t *Tree) AddMarker(ctx context.Context, id types.NodeID, m types.Marker) error {
	return t.mutate(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		if r.Markers == nil {
			r.Markers = make(map[types.Marker]map[string]string)
		}
		if _, ok := r.Markers[m]; !ok {
			r.Markers[m] = map[string]string{}
		}
		return nil
	})
}

// RemoveMarker implements types.Tree
func (t *Tree) RemoveMarker(ctx context.Context, id types.NodeID, m types.Marker) error {
	return t.mutate(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		delete(r.Markers, m)
		return nil
	})
}

// SetProperty implements types.Tree
func (t *Tree) SetProperty(ctx context.Context, id types.NodeID, m types.Marker, slot, value string) error {
	return t.mutate(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		if r.Markers == nil {
			r.Markers = make(map[types.Marker]map[string]string)
		}
		if r.Markers[m] == nil {
			r.Markers[m] = map[string]string{}
		}
		r.Markers[m][slot] = value
		return nil
	})
}

// CreateNode implements types.Tree. The node starts at the top level.
func (t *Tree) CreateNode(ctx context.Context) (*types.Node, error) {
	return t.createDetached(false)
}

// CreateMirror implements types.Tree
func (t *Tree) CreateMirror(ctx context.Context) (*types.Node, error) {
	return t.createDetached(true)
}

func (t *Tree) createDetached(mirror bool) (*types.Node, error) {
	var n *types.Node
	err := t.mutate(func(d *treeData) error {
		r := d.create(types.NodeID(t.opts.idFunc()), "", mirror, t.opts.timeFunc())
		n = r.snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// LinkIntoMirror implements types.Tree. Linking twice is a no-op.
func (t *Tree) LinkIntoMirror(ctx context.Context, id types.NodeID, mirror types.NodeID) error {
	return t.mutate(func(d *treeData) error {
		if _, err := d.get(id); err != nil {
			return err
		}
		m, err := d.get(mirror)
		if err != nil {
			return err
		}
		if !m.Mirror {
			return fmt.Errorf("%w: %s", ErrNotMirror, mirror)
		}
		for _, linked := range m.Links {
			if linked == id {
				return nil
			}
		}
		m.Links = append(m.Links, id)
		return nil
	})
}

// Relocate implements types.Tree
func (t *Tree) Relocate(ctx context.Context, ids []types.NodeID, dest types.NodeID, index int) error {
	return t.mutate(func(d *treeData) error {
		target, err := d.get(dest)
		if err != nil {
			return err
		}
		for i, id := range ids {
			r, err := d.get(id)
			if err != nil {
				return err
			}
			if d.isWithin(dest, id) {
				return fmt.Errorf("%w: %s into %s", ErrCycle, id, dest)
			}
			d.detach(r)
			target.Children = insertAt(target.Children, index+i, id)
			r.Parent = dest
		}
		return nil
	})
}

// SetText implements types.Tree
func (t *Tree) SetText(ctx context.Context, id types.NodeID, text string) error {
	return t.mutate(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		r.Text = text
		return nil
	})
}

// Remove implements types.Tree
func (t *Tree) Remove(ctx context.Context, id types.NodeID) error {
	return t.mutate(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		d.detach(r)
		removed := make(map[types.NodeID]struct{})
		var drop func(types.NodeID)
		drop = func(cur types.NodeID) {
			rec, ok := d.Nodes[cur]
			if !ok {
				return
			}
			for _, child := range rec.Children {
				drop(child)
			}
			delete(d.Nodes, cur)
			removed[cur] = struct{}{}
		}
		drop(id)

		order := d.Order[:0]
		for _, v := range d.Order {
			if _, gone := removed[v]; !gone {
				order = append(order, v)
			}
		}
		d.Order = order
		for _, rec := range d.Nodes {
			if !rec.Mirror || len(rec.Links) == 0 {
				continue
			}
			links := rec.Links[:0]
			for _, l := range rec.Links {
				if _, gone := removed[l]; !gone {
					links = append(links, l)
				}
			}
			rec.Links = links
		}
		return nil
	})
}
