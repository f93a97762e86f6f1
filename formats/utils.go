package formats

import (
	"strings"

	"github.com/arthur-debert/rollover/types"
)

// checkbox returns the task prefix for a status, empty for plain nodes
func checkbox(status string) string {
	switch types.ParseTaskStatus(status) {
	case types.Unfinished:
		return "[ ] "
	case types.Finished:
		return "[x] "
	}
	return ""
}

// label returns the display text of a node
func label(text string) string {
	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
