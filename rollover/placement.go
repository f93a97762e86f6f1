package rollover

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthur-debert/rollover/types"
)

// placer materializes buckets into today's document for one run
type placer struct {
	engine   *Engine
	settings types.Settings
	today    *types.Node
	rolled   rolledSet
	res      *Result

	// nodes already linked by a rolled mirror in today's document
	mirrored map[types.NodeID]struct{}
}

// mirroredInto returns every node linked by a rolled mirror placed
// directly in today's document
func (e *Engine) mirroredInto(ctx context.Context, today *types.Node) (map[types.NodeID]struct{}, error) {
	linked := make(map[types.NodeID]struct{})
	for _, id := range today.Children {
		n, err := e.tree.Resolve(ctx, id)
		if errors.Is(err, types.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve node %s: %w", id, err)
		}
		if !n.HasMarker(types.MarkerRolled) {
			continue
		}
		for _, l := range n.Links {
			linked[l] = struct{}{}
		}
	}
	return linked, nil
}

// unmirrored drops matches that today's document already mirrors
func (p *placer) unmirrored(matches []Match) []Match {
	if len(p.mirrored) == 0 {
		return matches
	}
	out := matches[:0:0]
	for _, m := range matches {
		if _, ok := p.mirrored[m.Node.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func (p *placer) placeBucket(ctx context.Context, key string, matches []Match) error {
	log := p.engine.logger.With("bucket", key)
	unfinished, completed := partition(matches)

	if p.settings.PortalMode && key != OmniKey {
		for _, m := range completed {
			if m.Parent == nil {
				continue
			}
			if err := p.anchor(ctx, m); err != nil {
				return err
			}
		}
	}

	if len(unfinished) == 0 {
		p.res.skip(key, SkipEmpty)
		return nil
	}

	if p.settings.PortalMode {
		if unfinished = p.unmirrored(unfinished); len(unfinished) == 0 {
			log.Debug("todos already mirrored into today")
			p.res.skip(key, SkipAlreadyRolled)
			return nil
		}
	}

	first := unfinished[0]
	if p.rolled.has(first.Parent) {
		log.Debug("ancestor already rolled this run", "parent", first.Parent.ID)
		p.res.skip(key, SkipAlreadyRolled)
		return nil
	}

	var (
		placed bool
		err    error
	)
	if p.settings.PortalMode {
		placed, err = p.mirror(ctx, key, unfinished)
	} else {
		if key == OmniKey {
			p.engine.notify(ctx, NoticeOmniUnsupported)
			p.res.skip(key, SkipOmniUnsupported)
			return nil
		}
		placed, err = p.move(ctx, unfinished)
	}
	if err != nil {
		return err
	}
	if !placed {
		p.res.skip(key, SkipCreateFailed)
		return nil
	}

	p.rolled.add(first.Parent)
	return nil
}

// mirror creates a mirror root at the top of today's document and links
// the bucket's todos into it. Todos stay physically under their ancestor.
func (p *placer) mirror(ctx context.Context, key string, matches []Match) (bool, error) {
	tree := p.engine.tree
	root, err := tree.CreateMirror(ctx)
	if err != nil || root == nil {
		p.engine.logger.Warn("failed to create mirror root", "bucket", key, "error", err)
		return false, nil
	}
	p.res.Created++
	if err := tree.AddMarker(ctx, root.ID, types.MarkerRolled); err != nil {
		return true, fmt.Errorf("failed to mark mirror root: %w", err)
	}
	if err := tree.Relocate(ctx, []types.NodeID{root.ID}, p.today.ID, 0); err != nil {
		return true, fmt.Errorf("failed to place mirror root: %w", err)
	}

	linked := make(map[types.NodeID]struct{})
	link := func(id types.NodeID) error {
		if _, ok := linked[id]; ok {
			return nil
		}
		if err := tree.LinkIntoMirror(ctx, id, root.ID); err != nil {
			if errors.Is(err, types.ErrNodeNotFound) {
				return nil
			}
			return fmt.Errorf("failed to link %s into mirror: %w", id, err)
		}
		linked[id] = struct{}{}
		p.res.Linked++
		return nil
	}

	for _, m := range matches {
		if key == OmniKey {
			if err := link(m.Node.ID); err != nil {
				return true, err
			}
			continue
		}
		if m.Parent != nil {
			if !m.Parent.HasMarker(types.MarkerDailyDocument) {
				if err := link(m.Parent.ID); err != nil {
					return true, err
				}
			}
			moved, err := p.appendTo(ctx, m.Node.ID, m.Parent.ID)
			if err != nil {
				return true, err
			}
			if moved {
				p.res.Relocated++
			}
		}
		if err := link(m.Node.ID); err != nil {
			return true, err
		}
	}
	return true, nil
}

// move relocates the bucket's todos into today's document. When the first
// todo has an ancestor, a copy of that ancestor is created at the top of
// today's document and every todo is consolidated under it. Otherwise the
// todos themselves are relocated to the top of today's document.
func (p *placer) move(ctx context.Context, matches []Match) (bool, error) {
	tree := p.engine.tree
	source := matches[0].Parent

	dest := p.today.ID
	if source != nil {
		copied, err := tree.CreateNode(ctx)
		if err != nil || copied == nil {
			p.engine.logger.Warn("failed to create ancestor copy", "parent", source.ID, "error", err)
			return false, nil
		}
		p.res.Created++
		if err := tree.SetProperty(ctx, copied.ID, types.MarkerRolled, types.SlotOriginalRem, string(source.ID)); err != nil {
			return true, fmt.Errorf("failed to mark ancestor copy: %w", err)
		}
		text := source.Text
		if text == "" {
			text = UntitledText
		}
		if err := tree.SetText(ctx, copied.ID, text); err != nil {
			return true, fmt.Errorf("failed to label ancestor copy: %w", err)
		}
		if err := tree.Relocate(ctx, []types.NodeID{copied.ID}, p.today.ID, 0); err != nil {
			return true, fmt.Errorf("failed to place ancestor copy: %w", err)
		}
		dest = copied.ID
	}

	// dest starts empty (fresh copy) or receives the todos at its top, so
	// counting placements is enough to append in bucket order.
	placed := 0
	for _, m := range matches {
		index := placed
		if p.settings.MoveOrder == types.MoveOrderPrepend {
			index = 0
		}
		err := tree.Relocate(ctx, []types.NodeID{m.Node.ID}, dest, index)
		if errors.Is(err, types.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return true, fmt.Errorf("failed to relocate %s: %w", m.Node.ID, err)
		}
		placed++
		p.res.Relocated++
	}
	return true, nil
}

// appendTo relocates id to be the last child of parent. It reports false
// when either node no longer resolves.
func (p *placer) appendTo(ctx context.Context, id, parent types.NodeID) (bool, error) {
	tree := p.engine.tree
	current, err := tree.Resolve(ctx, parent)
	if errors.Is(err, types.ErrNodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve %s: %w", parent, err)
	}
	index := len(current.Children)
	err = tree.Relocate(ctx, []types.NodeID{id}, parent, index)
	if errors.Is(err, types.ErrNodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to relocate %s: %w", id, err)
	}
	return true, nil
}

// anchor keeps a finished todo under its original ancestor
func (p *placer) anchor(ctx context.Context, m Match) error {
	parent, err := p.engine.tree.Resolve(ctx, m.Parent.ID)
	if errors.Is(err, types.ErrNodeNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", m.Parent.ID, err)
	}
	for _, child := range parent.Children {
		if child == m.Node.ID {
			return nil
		}
	}
	moved, err := p.appendTo(ctx, m.Node.ID, m.Parent.ID)
	if err != nil {
		return err
	}
	if moved {
		p.res.Anchored++
	}
	return nil
}
