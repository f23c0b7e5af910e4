// Package tools loads host tool declarations from YAML files.
package tools

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/termbridge/termbridge/internal/llm"
)

type toolFile struct {
	Tools []toolDecl `yaml:"tools"`
}

type toolDecl struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// Load reads a YAML tool declaration file and returns the tool specs
// in file order.
func Load(path string) ([]llm.ToolSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tools file: %w", err)
	}
	var f toolFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tools file %s: %w", path, err)
	}

	specs := make([]llm.ToolSpec, 0, len(f.Tools))
	for _, t := range f.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tools file %s: tool with empty name", path)
		}
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Schema:      normalize(t.Parameters),
		})
	}
	return specs, nil
}

// Names returns just the tool names, for the tag parser.
func Names(specs []llm.ToolSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// normalize converts yaml's map[string]any values recursively so the
// schema marshals cleanly to JSON. yaml.v3 already decodes mappings
// with string keys, but nested sequences may hold maps that need the
// same treatment.
func normalize(v map[string]any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = normalizeValue(val)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalize(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
