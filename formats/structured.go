package formats

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// JSON writes outlines and reports as indented JSON
var JSON = &Format{
	Name:      "json",
	Extension: ".json",
	Outline: func(w io.Writer, root *OutlineNode) error {
		return writeJSON(w, root)
	},
	Value: writeJSON,
}

// YAML writes outlines and reports as YAML
var YAML = &Format{
	Name:      "yaml",
	Extension: ".yaml",
	Outline: func(w io.Writer, root *OutlineNode) error {
		return writeYAML(w, root)
	},
	Value: writeYAML,
}

func init() {
	for _, f := range []*Format{JSON, YAML} {
		if err := Register(f); err != nil {
			panic(fmt.Sprintf("failed to register %s format: %v", f.Name, err))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
