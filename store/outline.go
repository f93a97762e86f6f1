package store

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/rollover/types"
	"gopkg.in/yaml.v3"
)

// OutlineNode is one entry of a YAML outline:
//
//	- daily: "-3"            # today, -N days, or 2006-01-02
//	  children:
//	    - text: Project
//	      children:
//	        - text: write report
//	          todo: unfinished
//	        - text: call back
//	          todo: finished
//	          markers: [doNotRollover]
type OutlineNode struct {
	Text     string         `yaml:"text"`
	Daily    string         `yaml:"daily,omitempty"`
	Todo     string         `yaml:"todo,omitempty"`
	Markers  []string       `yaml:"markers,omitempty"`
	Children []*OutlineNode `yaml:"children,omitempty"`
}

// ParseOutline decodes a YAML outline
func ParseOutline(r io.Reader) ([]*OutlineNode, error) {
	var nodes []*OutlineNode
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&nodes); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse outline: %w", err)
	}
	return nodes, nil
}

// Import adds the outline to the tree under parent (top level when empty)
// and returns the ids of the created top-level nodes
func (t *Tree) Import(ctx context.Context, parent types.NodeID, outline []*OutlineNode) ([]types.NodeID, error) {
	var ids []types.NodeID
	for _, o := range outline {
		id, err := t.importNode(ctx, parent, o)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *Tree) importNode(ctx context.Context, parent types.NodeID, o *OutlineNode) (types.NodeID, error) {
	var (
		n   *types.Node
		err error
	)
	if o.Daily != "" {
		if parent != "" {
			return "", fmt.Errorf("daily document %q must be top level", o.Daily)
		}
		date, perr := parseDaily(o.Daily, t.opts.timeFunc())
		if perr != nil {
			return "", perr
		}
		n, err = t.AddDailyDocument(ctx, date)
		if err == nil && o.Text != "" {
			err = t.SetText(ctx, n.ID, o.Text)
		}
	} else {
		status := types.ParseTaskStatus(o.Todo)
		if o.Todo != "" && status == types.NotATask {
			return "", fmt.Errorf("invalid todo status %q for %q", o.Todo, o.Text)
		}
		n, err = t.AddNode(ctx, parent, o.Text, status)
	}
	if err != nil {
		return "", err
	}

	for _, m := range o.Markers {
		if err := t.AddMarker(ctx, n.ID, types.Marker(m)); err != nil {
			return "", err
		}
	}
	for _, child := range o.Children {
		if _, err := t.importNode(ctx, n.ID, child); err != nil {
			return "", err
		}
	}
	return n.ID, nil
}

// parseDaily accepts "today", a day offset such as "-3", or a 2006-01-02 date
func parseDaily(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "today" {
		return now, nil
	}
	if offset, err := strconv.Atoi(s); err == nil {
		return now.AddDate(0, 0, offset), nil
	}
	date, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid daily date %q: expected today, -N or YYYY-MM-DD", s)
	}
	return date, nil
}
