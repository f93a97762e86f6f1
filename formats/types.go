// Package formats renders note outlines and run reports for the CLI.
package formats

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Format defines how outlines and reports are written
type Format struct {
	// Name is the format identifier (alphanumeric, dashes, underscores, lowercase)
	Name string

	// Extension is the file extension including the dot (e.g., ".txt", ".md")
	Extension string

	// Outline writes a node outline. Nil when the format cannot show trees.
	Outline func(w io.Writer, root *OutlineNode) error

	// Value writes any report value (run results, decisions, settings).
	// Nil when the format has no structured form.
	Value func(w io.Writer, v any) error
}

// registry holds all available formats
var registry = make(map[string]*Format)

// Register adds a new format to the registry
func Register(format *Format) error {
	// Validate format name (alphanumeric, dashes, underscores, lowercase)
	if !isValidFormatName(format.Name) {
		return fmt.Errorf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}

	// Normalize extension
	if !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}

	if _, exists := registry[format.Name]; exists {
		return fmt.Errorf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns a format by name
func Get(name string) (*Format, error) {
	format, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown format %q (available: %s)", name, strings.Join(List(), ", "))
	}
	return format, nil
}

// List returns all registered format names, sorted
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RenderOutline writes root in the named format
func RenderOutline(w io.Writer, root *OutlineNode, name string) error {
	format, err := Get(name)
	if err != nil {
		return err
	}
	if format.Outline == nil {
		return fmt.Errorf("format %q cannot render outlines", name)
	}
	return format.Outline(w, root)
}

// RenderValue writes a report value in the named format
func RenderValue(w io.Writer, v any, name string) error {
	format, err := Get(name)
	if err != nil {
		return err
	}
	if format.Value == nil {
		return fmt.Errorf("format %q cannot render reports", name)
	}
	return format.Value(w, v)
}

// isValidFormatName checks if a format name is valid
func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
