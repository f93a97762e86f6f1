package store

import (
	"context"
	"strconv"
	"time"

	"github.com/arthur-debert/rollover/types"
)

// DailyDocumentTitle is the layout used for daily document text
const DailyDocumentTitle = "January 2, 2006"

// AddNode creates a node under parent (top level when parent is empty)
// at the end of its children
func (t *Tree) AddNode(ctx context.Context, parent types.NodeID, text string, status types.TaskStatus) (*types.Node, error) {
	var n *types.Node
	err := t.mutate(func(d *treeData) error {
		var p *record
		if parent != "" {
			var err error
			if p, err = d.get(parent); err != nil {
				return err
			}
		}
		r := d.create(types.NodeID(t.opts.idFunc()), text, false, t.opts.timeFunc())
		if status != types.NotATask {
			r.Status = status.String()
		}
		if p != nil {
			d.Roots = without(d.Roots, r.ID)
			p.Children = append(p.Children, r.ID)
			r.Parent = p.ID
		}
		n = r.snapshot()
		return nil
	})
	return n, err
}

// AddDailyDocument creates a top-level daily document for date's day.
// The Timestamp slot holds the local midnight of that day.
func (t *Tree) AddDailyDocument(ctx context.Context, date time.Time) (*types.Node, error) {
	y, m, d := date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	n, err := t.AddNode(ctx, "", midnight.Format(DailyDocumentTitle), types.NotATask)
	if err != nil {
		return nil, err
	}
	ts := strconv.FormatInt(midnight.Unix(), 10)
	if err := t.SetProperty(ctx, n.ID, types.MarkerDailyDocument, types.SlotTimestamp, ts); err != nil {
		return nil, err
	}
	return t.Resolve(ctx, n.ID)
}

// SetStatus changes a node's task status
func (t *Tree) SetStatus(ctx context.Context, id types.NodeID, status types.TaskStatus) error {
	return t.mutate(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		r.Status = ""
		if status != types.NotATask {
			r.Status = status.String()
		}
		return nil
	})
}

// Parent returns the id of the node's parent, empty for top-level nodes
func (t *Tree) Parent(ctx context.Context, id types.NodeID) (types.NodeID, error) {
	var parent types.NodeID
	err := t.view(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		parent = r.Parent
		return nil
	})
	return parent, err
}

// Roots returns the top-level node ids in order
func (t *Tree) Roots(ctx context.Context) []types.NodeID {
	var roots []types.NodeID
	_ = t.view(func(d *treeData) error {
		roots = append(roots, d.Roots...)
		return nil
	})
	return roots
}

// Len returns the number of nodes in the tree
func (t *Tree) Len() int {
	n := 0
	_ = t.view(func(d *treeData) error {
		n = len(d.Nodes)
		return nil
	})
	return n
}

// IsDescendant reports whether id lies strictly below ancestor
func (t *Tree) IsDescendant(ctx context.Context, id, ancestor types.NodeID) (bool, error) {
	var within bool
	err := t.view(func(d *treeData) error {
		r, err := d.get(id)
		if err != nil {
			return err
		}
		within = r.Parent != "" && d.isWithin(r.Parent, ancestor)
		return nil
	})
	return within, err
}

func dailyTimestamp(r *record) (time.Time, bool) {
	props, ok := r.Markers[types.MarkerDailyDocument]
	if !ok {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(props[types.SlotTimestamp], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Find returns the ids of nodes whose text equals text, in creation order
func (t *Tree) Find(ctx context.Context, text string) []types.NodeID {
	var ids []types.NodeID
	_ = t.view(func(d *treeData) error {
		for _, id := range d.Order {
			if r, ok := d.Nodes[id]; ok && r.Text == text {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids
}

// Nodes returns snapshots of every node in creation order
func (t *Tree) Nodes(ctx context.Context) ([]*types.Node, error) {
	var nodes []*types.Node
	err := t.view(func(d *treeData) error {
		nodes = make([]*types.Node, 0, len(d.Order))
		for _, id := range d.Order {
			if r, ok := d.Nodes[id]; ok {
				nodes = append(nodes, r.snapshot())
			}
		}
		return nil
	})
	return nodes, err
}
