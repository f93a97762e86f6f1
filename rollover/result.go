package rollover

// SkipReason explains why a bucket produced no placement
type SkipReason string

const (
	SkipEmpty           SkipReason = "empty"
	SkipAlreadyRolled   SkipReason = "already-rolled"
	SkipCreateFailed    SkipReason = "create-failed"
	SkipOmniUnsupported SkipReason = "omni-unsupported"
)

// AbortReason explains a soft abort of a whole phase
type AbortReason string

const (
	AbortNone             AbortReason = ""
	AbortNoDailyDocuments AbortReason = "no-daily-documents"
	AbortNoToday          AbortReason = "no-today"
	AbortPortalModeOff    AbortReason = "portal-mode-off"
)

// Mode names the placement strategy used for a run
type Mode string

const (
	ModeMirror Mode = "mirror"
	ModeMove   Mode = "move"
)

// SkippedBucket records a bucket that was not placed
type SkippedBucket struct {
	Bucket string     `json:"bucket" yaml:"bucket"`
	Reason SkipReason `json:"reason" yaml:"reason"`
}

// Result summarises one rollover run
type Result struct {
	Mode       Mode            `json:"mode" yaml:"mode"`
	Aborted    AbortReason     `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Buckets    []string        `json:"buckets" yaml:"buckets"`
	Unfinished int             `json:"unfinished" yaml:"unfinished"`
	Completed  int             `json:"completed" yaml:"completed"`
	Created    int             `json:"created" yaml:"created"`
	Relocated  int             `json:"relocated" yaml:"relocated"`
	Linked     int             `json:"linked" yaml:"linked"`
	Anchored   int             `json:"anchored" yaml:"anchored"`
	Skipped    []SkippedBucket `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func (r *Result) skip(bucket string, reason SkipReason) {
	r.Skipped = append(r.Skipped, SkippedBucket{Bucket: bucket, Reason: reason})
}

// Placed returns the number of buckets that were materialized
func (r *Result) Placed() int {
	placed := 0
	for _, key := range r.Buckets {
		if !r.wasSkipped(key) {
			placed++
		}
	}
	return placed
}

func (r *Result) wasSkipped(bucket string) bool {
	for _, s := range r.Skipped {
		if s.Bucket == bucket {
			return true
		}
	}
	return false
}

// CleanupResult summarises a cleanup pass
type CleanupResult struct {
	Aborted AbortReason `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Scanned int         `json:"scanned" yaml:"scanned"`
	Removed int         `json:"removed" yaml:"removed"`
}
