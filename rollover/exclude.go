package rollover

import (
	"context"
	"fmt"

	"github.com/arthur-debert/rollover/types"
)

// Exclude tags a node so that neither it nor any todo below it is rolled
// over. An empty reason leaves the reason slot unset.
func Exclude(ctx context.Context, tree types.Tree, id types.NodeID, reason string) error {
	if _, err := tree.Resolve(ctx, id); err != nil {
		return fmt.Errorf("failed to resolve node %s: %w", id, err)
	}
	if reason == "" {
		if err := tree.AddMarker(ctx, id, types.MarkerDoNotRollover); err != nil {
			return fmt.Errorf("failed to exclude node %s: %w", id, err)
		}
		return nil
	}
	if err := tree.SetProperty(ctx, id, types.MarkerDoNotRollover, types.SlotReason, reason); err != nil {
		return fmt.Errorf("failed to exclude node %s: %w", id, err)
	}
	return nil
}

// Include removes the exclusion marker from a node
func Include(ctx context.Context, tree types.Tree, id types.NodeID) error {
	if err := tree.RemoveMarker(ctx, id, types.MarkerDoNotRollover); err != nil {
		return fmt.Errorf("failed to include node %s: %w", id, err)
	}
	return nil
}
