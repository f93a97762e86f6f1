package formats

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/arthur-debert/rollover/types"
)

// OutlineNode is a read-only rendering model of a subtree
type OutlineNode struct {
	ID       types.NodeID      `json:"id" yaml:"id"`
	Text     string            `json:"text" yaml:"text"`
	Status   string            `json:"status,omitempty" yaml:"status,omitempty"`
	Markers  []string          `json:"markers,omitempty" yaml:"markers,omitempty"`
	Links    []OutlineLink     `json:"links,omitempty" yaml:"links,omitempty"`
	Children []*OutlineNode    `json:"children,omitempty" yaml:"children,omitempty"`
	Props    map[string]string `json:"props,omitempty" yaml:"props,omitempty"`
}

// OutlineLink is an entry shown inside a mirror
type OutlineLink struct {
	ID     types.NodeID `json:"id" yaml:"id"`
	Text   string       `json:"text" yaml:"text"`
	Status string       `json:"status,omitempty" yaml:"status,omitempty"`
}

// maxOutlineDepth bounds rendering of pathological trees
const maxOutlineDepth = 64

// BuildOutline resolves the subtree under id. Children that no longer
// resolve are left out.
func BuildOutline(ctx context.Context, tree types.Tree, id types.NodeID) (*OutlineNode, error) {
	return buildOutline(ctx, tree, id, 0)
}

func buildOutline(ctx context.Context, tree types.Tree, id types.NodeID, depth int) (*OutlineNode, error) {
	n, err := tree.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	o := &OutlineNode{ID: n.ID, Text: n.Text}
	if n.IsTask() {
		o.Status = n.Status.String()
	}
	for m, props := range n.Markers {
		o.Markers = append(o.Markers, m.String())
		for slot, v := range props {
			if o.Props == nil {
				o.Props = make(map[string]string)
			}
			o.Props[m.String()+"."+slot] = v
		}
	}
	sort.Strings(o.Markers)

	for _, linked := range n.Links {
		ln, err := tree.Resolve(ctx, linked)
		if errors.Is(err, types.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		link := OutlineLink{ID: ln.ID, Text: ln.Text}
		if ln.IsTask() {
			link.Status = ln.Status.String()
		}
		o.Links = append(o.Links, link)
	}

	if depth >= maxOutlineDepth {
		return o, nil
	}
	for _, child := range n.Children {
		c, err := buildOutline(ctx, tree, child, depth+1)
		if errors.Is(err, types.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", child, err)
		}
		o.Children = append(o.Children, c)
	}
	return o, nil
}
