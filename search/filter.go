package search

import "github.com/arthur-debert/rollover/types"

// Filter narrows the nodes a search looks at. A node must satisfy every
// non-empty field. The zero Filter matches everything.
type Filter struct {
	// Statuses keeps nodes whose status is one of the listed values
	Statuses []types.TaskStatus

	// Markers keeps nodes carrying all of the listed markers
	Markers []types.Marker

	// Without drops nodes carrying any of the listed markers
	Without []types.Marker
}

// IsZero reports whether the filter matches every node
func (f Filter) IsZero() bool {
	return len(f.Statuses) == 0 && len(f.Markers) == 0 && len(f.Without) == 0
}

// Matches checks if a node passes the filter
func (f Filter) Matches(n *types.Node) bool {
	if n == nil {
		return false
	}

	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if n.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, m := range f.Markers {
		if !n.HasMarker(m) {
			return false
		}
	}

	for _, m := range f.Without {
		if n.HasMarker(m) {
			return false
		}
	}

	return true
}
