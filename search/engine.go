// Package search finds nodes in a note tree by their text. It backs the
// CLI's find command and the suggestions offered when a node reference
// does not resolve.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Engine implements the Searcher interface
type Engine struct {
	provider NodeProvider
}

var _ Searcher = (*Engine)(nil)

// NewEngine creates a new search engine with the given node provider
func NewEngine(provider NodeProvider) *Engine {
	return &Engine{
		provider: provider,
	}
}

// Search performs a search and returns results ranked by score. Ties keep
// the provider's enumeration order.
func (e *Engine) Search(ctx context.Context, options Options) ([]Result, error) {
	if options.Query == "" {
		return []Result{}, nil
	}

	nodes, err := e.provider.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}

	results := []Result{}
	for _, node := range nodes {
		if !options.Filter.Matches(node) {
			continue
		}
		matches, kind := findMatches(node.Text, options)
		if len(matches) == 0 {
			continue
		}
		r := Result{
			Node:      node,
			Score:     score(node.Text, options.Query, kind),
			MatchType: kind,
			Matches:   matches,
		}
		if options.Highlight {
			r.Highlighted = highlight(node.Text, matches, options)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if options.MaxResults > 0 && len(results) > options.MaxResults {
		results = results[:options.MaxResults]
	}

	return results, nil
}

// findMatches returns the non-overlapping occurrences of the query
func findMatches(text string, options Options) ([]Match, MatchType) {
	searchText, query := text, options.Query
	if !options.CaseSensitive {
		searchText = strings.ToLower(text)
		query = strings.ToLower(query)
		// offsets must stay valid in the original text
		if len(searchText) != len(text) {
			searchText, query = text, options.Query
		}
	}

	if searchText == query {
		return []Match{{Start: 0, End: len(text)}}, MatchExact
	}
	if options.ExactMatch {
		return nil, ""
	}

	var matches []Match
	for i := 0; i+len(query) <= len(searchText); {
		idx := strings.Index(searchText[i:], query)
		if idx < 0 {
			break
		}
		start := i + idx
		matches = append(matches, Match{Start: start, End: start + len(query)})
		i = start + len(query)
	}
	if len(matches) == 0 {
		return nil, ""
	}
	if matches[0].Start == 0 {
		return matches, MatchPrefix
	}
	return matches, MatchPartial
}

// score computes a relevance score for a match
func score(text, query string, kind MatchType) float64 {
	if kind == MatchExact {
		return 1.0
	}

	s := 0.6

	// Boost if match is at the beginning
	if kind == MatchPrefix {
		s += 0.2
	}

	// Boost if query takes up a large portion of the text
	if coverage := float64(len(query)) / float64(len(text)); coverage > 0.5 {
		s += 0.1
	}

	// Only exact matches score 1.0
	if s > 0.9 {
		s = 0.9
	}
	return s
}

// highlight wraps each match in the configured markers
func highlight(text string, matches []Match, options Options) string {
	start, end := options.HighlightStart, options.HighlightEnd
	if start == "" {
		start = "**"
	}
	if end == "" {
		end = "**"
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		b.WriteString(start)
		b.WriteString(text[m.Start:m.End])
		b.WriteString(end)
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String()
}
