package search

import (
	"context"

	"github.com/arthur-debert/rollover/types"
)

// mockProvider implements NodeProvider for testing
type mockProvider struct {
	nodes []*types.Node
	err   error
}

func (m *mockProvider) Nodes(ctx context.Context) ([]*types.Node, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.nodes, nil
}

// sampleNodes provides a small tree's worth of nodes in creation order
func sampleNodes() []*types.Node {
	return []*types.Node{
		{
			ID:      "d1",
			Text:    "March 9, 2024",
			Markers: map[types.Marker]map[string]string{types.MarkerDailyDocument: {types.SlotTimestamp: "1709942400"}},
		},
		{ID: "p1", Text: "Project"},
		{ID: "t1", Text: "write report", Status: types.Unfinished},
		{ID: "t2", Text: "Report to Sam", Status: types.Finished},
		{
			ID:      "t3",
			Text:    "quarterly report draft",
			Status:  types.Unfinished,
			Markers: map[types.Marker]map[string]string{types.MarkerDoNotRollover: {types.SlotReason: "waiting"}},
		},
		{ID: "n1", Text: "report"},
	}
}

func ids(results []Result) []types.NodeID {
	out := make([]types.NodeID, len(results))
	for i, r := range results {
		out[i] = r.Node.ID
	}
	return out
}
