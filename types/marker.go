package types

// Marker is the code of an attachable tag ("powerup"). The engine knows the
// closed set declared below; any other code is carried through untouched.
type Marker string

const (
	// MarkerDailyDocument tags a day's document. Its Timestamp slot holds
	// seconds since the epoch.
	MarkerDailyDocument Marker = "dailyDocument"

	// MarkerDoNotRollover excludes a node and its subtree from rollover
	MarkerDoNotRollover Marker = "doNotRollover"

	// MarkerOmniRollover makes a node a root of the unconditional discovery pass
	MarkerOmniRollover Marker = "omniRollover"

	// MarkerRolled is stamped on every node the engine creates
	MarkerRolled Marker = "rolled"
)

// Slot names used with the markers above
const (
	SlotTimestamp   = "Timestamp"
	SlotReason      = "reason"
	SlotOriginalRem = "originalRem"
)

// Known reports whether the marker belongs to the closed set the engine understands
func (m Marker) Known() bool {
	switch m {
	case MarkerDailyDocument, MarkerDoNotRollover, MarkerOmniRollover, MarkerRolled:
		return true
	default:
		return false
	}
}

// String returns the marker code
func (m Marker) String() string {
	return string(m)
}

// TaskStatus classifies a node's checklist state
type TaskStatus int

const (
	// NotATask is the zero value: the node has no checklist semantics
	NotATask TaskStatus = iota
	// Unfinished is an open checklist item
	Unfinished
	// Finished is a checked-off item
	Finished
)

// String returns the string representation of the TaskStatus
func (s TaskStatus) String() string {
	switch s {
	case Unfinished:
		return "unfinished"
	case Finished:
		return "finished"
	default:
		return "none"
	}
}

// ParseTaskStatus converts the string form back into a TaskStatus.
// Unknown values map to NotATask.
func ParseTaskStatus(s string) TaskStatus {
	switch s {
	case "unfinished":
		return Unfinished
	case "finished":
		return Finished
	default:
		return NotATask
	}
}
