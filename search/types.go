package search

import (
	"context"

	"github.com/arthur-debert/rollover/types"
)

// Options configures search behavior
type Options struct {
	// Query is the text to look for in node text
	Query string

	// CaseSensitive controls whether search is case-sensitive
	CaseSensitive bool

	// ExactMatch requires the entire node text to match the query.
	// When false, performs substring matching.
	ExactMatch bool

	// Highlight wraps every match in HighlightStart and HighlightEnd
	// (both default to "**")
	Highlight      bool
	HighlightStart string
	HighlightEnd   string

	// MaxResults limits the number of results; zero means no limit
	MaxResults int

	// Filter restricts which nodes are considered at all
	Filter Filter
}

// Result is a matching node with its relevance
type Result struct {
	// Node is the matched snapshot
	Node *types.Node

	// Score represents match relevance (0.0 to 1.0, higher is better)
	Score float64

	// MatchType describes how the query matched
	MatchType MatchType

	// Matches lists every occurrence of the query in the node text
	Matches []Match

	// Highlighted is the node text with match markers, when requested
	Highlighted string
}

// Match is one occurrence of the query inside the node text
type Match struct {
	Start int // Byte offset where the match starts
	End   int // Byte offset where the match ends (exclusive)
}

// MatchType indicates the kind of match found
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPrefix  MatchType = "prefix"
	MatchPartial MatchType = "partial"
)

// NodeProvider enumerates the nodes to search. *store.Tree satisfies it.
type NodeProvider interface {
	Nodes(ctx context.Context) ([]*types.Node, error)
}

// Searcher defines the main search interface
type Searcher interface {
	Search(ctx context.Context, options Options) ([]Result, error)
}
