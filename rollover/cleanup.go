package rollover

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthur-debert/rollover/types"
)

// Cleanup removes rollover artifacts that are no longer inside today's
// daily document. It only runs in portal mode: in move mode the artifacts
// hold relocated user content and are permanent.
func (e *Engine) Cleanup(ctx context.Context) (*CleanupResult, error) {
	settings, err := e.settings.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	res, err := e.cleanup(ctx, settings)
	if err != nil {
		err = &RunError{Phase: PhaseCleanup, Err: err}
		e.logger.Error("cleanup failed", "error", err)
		return res, err
	}
	e.metrics.observeCleanup(res)
	return res, nil
}

func (e *Engine) cleanup(ctx context.Context, settings types.Settings) (*CleanupResult, error) {
	res := &CleanupResult{}
	if !settings.PortalMode {
		res.Aborted = AbortPortalModeOff
		return res, nil
	}

	artifacts, err := e.tree.Tagged(ctx, types.MarkerRolled)
	if err != nil {
		return res, fmt.Errorf("failed to list rollover artifacts: %w", err)
	}
	if len(artifacts) == 0 {
		return res, nil
	}

	today, err := e.tree.Today(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to resolve today's document: %w", err)
	}
	if today == nil {
		// Without today's document nothing is anchored; keep everything
		// rather than wipe every mirror.
		e.logger.Info("no daily document for today, keeping artifacts")
		e.notify(ctx, NoticeNoToday)
		res.Aborted = AbortNoToday
		return res, nil
	}

	anchored, err := e.descendants(ctx, today)
	if err != nil {
		return res, err
	}

	for _, artifact := range artifacts {
		res.Scanned++
		if _, ok := anchored[artifact.ID]; ok {
			continue
		}
		err := e.tree.Remove(ctx, artifact.ID)
		if errors.Is(err, types.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("failed to remove artifact %s: %w", artifact.ID, err)
		}
		e.logger.Debug("removed orphaned artifact", "node", artifact.ID)
		res.Removed++
	}
	return res, nil
}

// descendants returns the ids of every node below root
func (e *Engine) descendants(ctx context.Context, root *types.Node) (map[types.NodeID]struct{}, error) {
	seen := make(map[types.NodeID]struct{})
	stack := append([]types.NodeID(nil), root.Children...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		n, err := e.tree.Resolve(ctx, id)
		if errors.Is(err, types.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve node %s: %w", id, err)
		}
		seen[id] = struct{}{}
		stack = append(stack, n.Children...)
	}
	return seen, nil
}
