package rollover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arthur-debert/rollover/types"
)

// scope describes the walk a node is reached from
type scope struct {
	key    string
	omni   bool
	accept bool // container day has elapsed; omni roots always accept
}

// collector accumulates matches for one run
type collector struct {
	engine   *Engine
	retain   bool
	buckets  *Buckets
	resolved map[types.NodeID]struct{} // tasks already turned into matches
}

// collect walks every eligible daily document, then every always-roll root
func (e *Engine) collect(ctx context.Context, settings types.Settings, now time.Time) (*Buckets, AbortReason, error) {
	c := &collector{
		engine:   e,
		retain:   settings.RetainCompleted,
		buckets:  NewBuckets(),
		resolved: make(map[types.NodeID]struct{}),
	}

	containers, err := e.tree.Tagged(ctx, types.MarkerDailyDocument)
	if err != nil {
		return nil, AbortNone, fmt.Errorf("failed to list daily documents: %w", err)
	}
	if len(containers) == 0 {
		e.logger.Debug("no daily documents found")
		return c.buckets, AbortNoDailyDocuments, nil
	}

	for _, container := range containers {
		date, key, ok := ContainerTimestamp(container)
		if !ok {
			e.logger.Debug("daily document without timestamp", "node", container.ID)
			continue
		}
		if days := DaysSince(date, now); days > settings.DateLimit {
			continue
		}
		sc := scope{key: key, accept: HasElapsed(date, now)}
		if err := c.walk(ctx, container.ID, sc, nil, true); err != nil {
			return nil, AbortNone, err
		}
	}

	roots, err := e.tree.Tagged(ctx, types.MarkerOmniRollover)
	if err != nil {
		return nil, AbortNone, fmt.Errorf("failed to list always-roll roots: %w", err)
	}
	for _, root := range roots {
		sc := scope{key: OmniKey, omni: true, accept: true}
		if err := c.walk(ctx, root.ID, sc, nil, true); err != nil {
			return nil, AbortNone, err
		}
	}

	return c.buckets, AbortNone, nil
}

// walk visits id depth first. Task nodes end the descent; parent only
// changes at non-task nodes so it always names the nearest non-task
// ancestor. Children of the walk root get no parent.
func (c *collector) walk(ctx context.Context, id types.NodeID, sc scope, parent *types.Node, root bool) error {
	n, err := c.engine.tree.Resolve(ctx, id)
	if errors.Is(err, types.ErrNodeNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve node %s: %w", id, err)
	}

	switch {
	case IsUnfinishedTask(n):
		if parent.HasMarker(types.MarkerDoNotRollover) || n.HasMarker(types.MarkerDoNotRollover) {
			c.engine.logger.Debug("todo excluded", "node", n.ID)
			return nil
		}
		if sc.accept && c.claim(n) {
			c.buckets.Add(sc.key, Match{Node: n, Parent: parent})
		}
		return nil

	case IsFinishedTask(n):
		if c.retain && !sc.omni && sc.accept && c.claim(n) {
			c.buckets.Add(sc.key, Match{Node: n, Parent: parent, Completed: true})
		}
		return nil
	}

	if n.HasMarker(types.MarkerDoNotRollover) {
		c.engine.logger.Debug("subtree excluded", "node", n.ID)
		return nil
	}

	next := n
	if root {
		next = nil
	}
	for _, child := range n.Children {
		if err := c.walk(ctx, child, sc, next, false); err != nil {
			return err
		}
	}
	return nil
}

// claim reports whether n has not been matched yet in this run
func (c *collector) claim(n *types.Node) bool {
	if _, ok := c.resolved[n.ID]; ok {
		return false
	}
	c.resolved[n.ID] = struct{}{}
	return true
}
