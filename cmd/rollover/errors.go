package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/rollover/rollover"
	"github.com/arthur-debert/rollover/types"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "run", "exclude", "show")
	Cause       string   // The underlying cause (e.g., "node not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}

	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}

	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError creates an error for a bad argument or flag value
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewNotFoundError creates an error for a node reference that does not resolve
func NewNotFoundError(operation, ref string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("no node matches %q", ref),
		Suggestions: suggestions,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation string, underlying error) *CLIError {
	return &CLIError{
		Operation: operation,
		Cause:     "configuration error",
		Details:   underlying.Error(),
		Suggestions: []string{
			CommonSuggestions.CheckConfig,
			CommonSuggestions.ShowConfig,
		},
		Underlying: underlying,
	}
}

// NewStoreError creates an error for failures reading or writing the tree
// and state files
func NewStoreError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "store operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()

		errStr := strings.ToLower(underlying.Error())
		var runErr *rollover.RunError
		switch {
		case errors.Is(underlying, types.ErrNodeNotFound):
			cause = "node not found"
		case errors.As(underlying, &runErr):
			cause = fmt.Sprintf("rollover failed during %s", runErr.Phase)
		case strings.Contains(errStr, "no such file"):
			cause = "tree file not found"
		case strings.Contains(errStr, "permission denied"):
			cause = "insufficient permissions to access the tree"
		case strings.Contains(errStr, "failed to acquire lock"):
			cause = "tree is currently locked by another process"
		case strings.Contains(errStr, "failed to parse"):
			cause = "tree or state file is corrupt"
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// NewFormatError creates an error for an unknown or unsuitable output format
func NewFormatError(operation, format string, available []string) *CLIError {
	suggestions := []string{"Use --format to pick another output format"}
	if len(available) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Available formats: %s", strings.Join(available, ", ")))
	}
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("unsupported format %q", format),
		Suggestions: suggestions,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	return NewStoreError(operation, err, suggestions...)
}

// CommonSuggestions are reused across commands
var CommonSuggestions = struct {
	CheckTree   string
	CheckRef    string
	CheckConfig string
	ShowConfig  string
	CheckPerms  string
	CreateToday string
	TryDryRun   string
}{
	CheckTree:   "Verify --tree points to a valid tree file",
	CheckRef:    "Reference a node by id, by exact text, or with 'today'",
	CheckConfig: "Check your rollover.yaml or ROLLOVER_* environment variables",
	ShowConfig:  "Run 'rollover config' to see the effective settings",
	CheckPerms:  "Check file permissions and directory access",
	CreateToday: "Create today's daily document with 'rollover import'",
	TryDryRun:   "Use 'rollover run --dry-run' to preview the rollover",
}
