package rollover

import "fmt"

// Phases of a run, used in RunError
const (
	PhaseCollect = "collect"
	PhasePlace   = "place"
	PhaseCleanup = "cleanup"
)

// RunError wraps an unexpected collaborator failure that aborted a run.
// Buckets placed before the failure stay committed.
type RunError struct {
	Phase  string
	Bucket string // empty outside the place phase
	Err    error
}

// Error implements the error interface
func (e *RunError) Error() string {
	if e.Bucket != "" {
		return fmt.Sprintf("rollover %s failed on bucket %s: %v", e.Phase, e.Bucket, e.Err)
	}
	return fmt.Sprintf("rollover %s failed: %v", e.Phase, e.Err)
}

// Unwrap returns the underlying error for error chain compatibility
func (e *RunError) Unwrap() error {
	return e.Err
}
