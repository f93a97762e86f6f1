package rollover

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/rollover/types"
)

// ErrInvalidTimeOfDay is returned when a time-of-day setting does not parse
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// IsUnfinishedTask reports whether the node is an open checklist item.
// Nodes without task semantics are never unfinished.
func IsUnfinishedTask(n *types.Node) bool {
	return n.IsTask() && n.Status == types.Unfinished
}

// IsFinishedTask reports whether the node is a checked-off checklist item
func IsFinishedTask(n *types.Node) bool {
	return n.IsTask() && n.Status == types.Finished
}

// startOfDay truncates t to midnight in its own location
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HasElapsed reports whether date's day is strictly before now's day.
// date is interpreted in now's location.
func HasElapsed(date, now time.Time) bool {
	return startOfDay(date.In(now.Location())).Before(startOfDay(now))
}

// DaysSince counts whole calendar days from date to now. Same day is 0 and
// dates in the future clamp to 0.
func DaysSince(date, now time.Time) int {
	dy, dm, dd := date.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	// Civil dates in UTC keep DST transitions out of the arithmetic.
	from := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// SameDay reports whether a and b fall on the same calendar day in b's location
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// TimeOfDay is a wall-clock hour and minute
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String formats the time as HH:MM
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" (seconds are ignored)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// IsDue reports whether now's wall-clock time is at or after tod.
// Hour and minute compare as a tuple: 10:00 is due for 09:30.
func IsDue(tod TimeOfDay, now time.Time) bool {
	if now.Hour() != tod.Hour {
		return now.Hour() > tod.Hour
	}
	return now.Minute() >= tod.Minute
}

// ContainerTimestamp reads the Timestamp slot of a daily document
func ContainerTimestamp(n *types.Node) (time.Time, string, bool) {
	raw, ok := n.Property(types.MarkerDailyDocument, types.SlotTimestamp)
	if !ok {
		return time.Time{}, "", false
	}
	raw = strings.TrimSpace(raw)
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, "", false
	}
	return time.Unix(secs, 0), raw, true
}
