// Package testutil builds in-memory note trees for tests.
package testutil

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/rollover/store"
	"github.com/arthur-debert/rollover/types"
)

// Now is the fixed clock of every fixture: a Sunday afternoon
var Now = time.Date(2024, time.March, 10, 14, 0, 0, 0, time.Local)

// Clock returns a time function frozen at Now
func Clock() func() time.Time {
	return func() time.Time { return Now }
}

// World is a memory tree with helpers for arranging nodes
type World struct {
	t    *testing.T
	ctx  context.Context
	Tree *store.Tree
}

// NewWorld returns an empty memory tree whose clock is Now and whose ids
// are n1, n2, ... in creation order
func NewWorld(t *testing.T) *World {
	t.Helper()
	var (
		mu   sync.Mutex
		next int
	)
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("n%d", next)
	}
	return &World{
		t:    t,
		ctx:  context.Background(),
		Tree: store.NewMemoryTree(store.WithTimeFunc(Clock()), store.WithIDFunc(ids)),
	}
}

// Day adds a daily document for daysAgo days before Now
func (w *World) Day(daysAgo int) types.NodeID {
	w.t.Helper()
	n, err := w.Tree.AddDailyDocument(w.ctx, Now.AddDate(0, 0, -daysAgo))
	if err != nil {
		w.t.Fatalf("failed to add daily document: %v", err)
	}
	return n.ID
}

// Add adds a plain node as the last child of parent
func (w *World) Add(parent types.NodeID, text string) types.NodeID {
	w.t.Helper()
	return w.add(parent, text, types.NotATask)
}

// Todo adds an unfinished task as the last child of parent
func (w *World) Todo(parent types.NodeID, text string) types.NodeID {
	w.t.Helper()
	return w.add(parent, text, types.Unfinished)
}

// Done adds a finished task as the last child of parent
func (w *World) Done(parent types.NodeID, text string) types.NodeID {
	w.t.Helper()
	return w.add(parent, text, types.Finished)
}

func (w *World) add(parent types.NodeID, text string, status types.TaskStatus) types.NodeID {
	w.t.Helper()
	n, err := w.Tree.AddNode(w.ctx, parent, text, status)
	if err != nil {
		w.t.Fatalf("failed to add %q: %v", text, err)
	}
	return n.ID
}

// Mark attaches a marker
func (w *World) Mark(id types.NodeID, m types.Marker) {
	w.t.Helper()
	if err := w.Tree.AddMarker(w.ctx, id, m); err != nil {
		w.t.Fatalf("failed to mark %s: %v", id, err)
	}
}

// Node resolves a node or fails the test
func (w *World) Node(id types.NodeID) *types.Node {
	w.t.Helper()
	n, err := w.Tree.Resolve(w.ctx, id)
	if err != nil {
		w.t.Fatalf("failed to resolve %s: %v", id, err)
	}
	return n
}

// Parent returns the node's parent id
func (w *World) Parent(id types.NodeID) types.NodeID {
	w.t.Helper()
	p, err := w.Tree.Parent(w.ctx, id)
	if err != nil {
		w.t.Fatalf("failed to resolve parent of %s: %v", id, err)
	}
	return p
}

// Texts returns the text of each child of id, in order
func (w *World) Texts(id types.NodeID) []string {
	w.t.Helper()
	var out []string
	for _, child := range w.Node(id).Children {
		out = append(out, w.Node(child).Text)
	}
	return out
}

// Find returns the only node with the given text
func (w *World) Find(text string) types.NodeID {
	w.t.Helper()
	ids := w.Tree.Find(w.ctx, text)
	if len(ids) != 1 {
		w.t.Fatalf("expected exactly one node %q, found %d", text, len(ids))
	}
	return ids[0]
}

// Tagged returns the ids of nodes carrying the marker
func (w *World) Tagged(m types.Marker) []types.NodeID {
	w.t.Helper()
	nodes, err := w.Tree.Tagged(w.ctx, m)
	if err != nil {
		w.t.Fatalf("failed to list %s nodes: %v", m, err)
	}
	ids := make([]types.NodeID, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// Import adds a YAML outline at the top level
func (w *World) Import(outline []byte) []types.NodeID {
	w.t.Helper()
	nodes, err := store.ParseOutline(bytes.NewReader(outline))
	if err != nil {
		w.t.Fatalf("failed to parse outline: %v", err)
	}
	ids, err := w.Tree.Import(w.ctx, "", nodes)
	if err != nil {
		w.t.Fatalf("failed to import outline: %v", err)
	}
	return ids
}

//go:embed testdata/week.yaml
var weekOutline []byte

// Week holds the named nodes of the week fixture
type Week struct {
	*World

	TooOld       types.NodeID // eight days ago, outside the default window
	ThreeDaysAgo types.NodeID
	Yesterday    types.NodeID
	Today        types.NodeID
	Inbox        types.NodeID // always-roll root

	Errands     types.NodeID
	BuyMilk     types.NodeID
	PostLetter  types.NodeID // finished
	WaterPlants types.NodeID // directly under ThreeDaysAgo
	Work        types.NodeID
	WriteReport types.NodeID
	HiddenTask  types.NodeID // below an excluded plain node
	SkipMe      types.NodeID // excluded task
	FreshTask   types.NodeID // already in today's document
	TriageMail  types.NodeID
}

// LoadWeek returns a world populated with the week fixture
func LoadWeek(t *testing.T) *Week {
	t.Helper()
	w := NewWorld(t)
	top := w.Import(weekOutline)
	if len(top) != 5 {
		t.Fatalf("week fixture: expected 5 top-level nodes, got %d", len(top))
	}
	return &Week{
		World:        w,
		TooOld:       top[0],
		ThreeDaysAgo: top[1],
		Yesterday:    top[2],
		Today:        top[3],
		Inbox:        top[4],
		Errands:      w.Find("Errands"),
		BuyMilk:      w.Find("buy milk"),
		PostLetter:   w.Find("post letter"),
		WaterPlants:  w.Find("water plants"),
		Work:         w.Find("Work"),
		WriteReport:  w.Find("write report"),
		HiddenTask:   w.Find("hidden task"),
		SkipMe:       w.Find("skip me"),
		FreshTask:    w.Find("fresh task"),
		TriageMail:   w.Find("triage mail"),
	}
}

// Recorder is a types.Notifier that keeps every message
type Recorder struct {
	mu       sync.Mutex
	messages []string
	Err      error // returned from Notify when set
}

var _ types.Notifier = (*Recorder)(nil)

// Notify implements types.Notifier
func (r *Recorder) Notify(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return r.Err
}

// Messages returns the recorded messages in order
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Has reports whether message was recorded
func (r *Recorder) Has(message string) bool {
	for _, m := range r.Messages() {
		if m == message {
			return true
		}
	}
	return false
}
