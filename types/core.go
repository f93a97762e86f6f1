package types

import (
	"context"
	"errors"
)

// NodeID identifies a node in the host's note tree
type NodeID string

// ErrNodeNotFound is returned by a Tree when an id no longer resolves.
// Callers treat it as a skip: nodes are deleted concurrently all the time.
var ErrNodeNotFound = errors.New("node not found")

// Node is a point-in-time snapshot of a node in the host's note tree.
// The engine never owns a Node; it reads snapshots and mutates the tree
// through the Tree interface. Snapshots go stale after any mutation.
type Node struct {
	ID       NodeID   // Stable identifier
	Text     string   // Text payload
	Children []NodeID // Ordered child ids (order is significant)
	Status   TaskStatus

	// Markers attached to the node with their slot properties.
	// A marker with no properties maps to an empty (possibly nil) map.
	Markers map[Marker]map[string]string

	// Links holds the ids shown inside a mirror root. Only mirror
	// roots created through Tree.CreateMirror carry links.
	Links []NodeID
}

// HasMarker reports whether the marker is attached to the node
func (n *Node) HasMarker(m Marker) bool {
	if n == nil || n.Markers == nil {
		return false
	}
	_, ok := n.Markers[m]
	return ok
}

// Property returns the value of a marker-scoped slot
func (n *Node) Property(m Marker, slot string) (string, bool) {
	if n == nil || n.Markers == nil {
		return "", false
	}
	props, ok := n.Markers[m]
	if !ok {
		return "", false
	}
	v, ok := props[slot]
	return v, ok
}

// IsTask reports whether the node carries checklist semantics
func (n *Node) IsTask() bool {
	return n != nil && n.Status != NotATask
}

// Tree is the collaborator interface the engine consumes.
// Implementations are expected to be safe for overlapping callers but no
// transactional guarantee is assumed across calls.
type Tree interface {
	// Resolve returns a snapshot of the node, or ErrNodeNotFound
	Resolve(ctx context.Context, id NodeID) (*Node, error)

	// Tagged returns every node carrying the marker, in the host's enumeration order
	Tagged(ctx context.Context, m Marker) ([]*Node, error)

	// Today returns today's daily document, or nil if it has not been created
	Today(ctx context.Context) (*Node, error)

	// AddMarker attaches a marker (no-op if already attached)
	AddMarker(ctx context.Context, id NodeID, m Marker) error

	// RemoveMarker detaches a marker and its properties
	RemoveMarker(ctx context.Context, id NodeID, m Marker) error

	// SetProperty sets a marker-scoped slot, attaching the marker if needed
	SetProperty(ctx context.Context, id NodeID, m Marker, slot, value string) error

	// CreateNode creates a detached plain node
	CreateNode(ctx context.Context) (*Node, error)

	// CreateMirror creates a detached mirror root
	CreateMirror(ctx context.Context) (*Node, error)

	// LinkIntoMirror shows the node inside the mirror without relocating it
	LinkIntoMirror(ctx context.Context, id NodeID, mirror NodeID) error

	// Relocate moves the nodes, in order, under dest starting at index.
	// An index past the end appends.
	Relocate(ctx context.Context, ids []NodeID, dest NodeID, index int) error

	// SetText replaces the node's text payload
	SetText(ctx context.Context, id NodeID, text string) error

	// Remove deletes the node together with its descendants
	Remove(ctx context.Context, id NodeID) error
}

// Notifier surfaces short user-visible messages (toasts)
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// SyncedStorage is the small durable key/value store used for bookkeeping
// such as the last automatic run time
type SyncedStorage interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value under key
	Set(ctx context.Context, key string, value string) error
}

// SettingsSource provides the current settings. It is consulted at the
// start of every run so edits apply without a restart.
type SettingsSource interface {
	Settings() (Settings, error)
}

// StaticSettings is a SettingsSource that always returns the same value
type StaticSettings Settings

// Settings implements SettingsSource
func (s StaticSettings) Settings() (Settings, error) {
	return Settings(s), nil
}
