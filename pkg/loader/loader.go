// Package loader reads graph definitions and initial states from YAML or
// JSON documents.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// Format selects the document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor infers the format from a file extension. Anything that is not
// .json is read as YAML, which also accepts JSON.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile reads a graph definition from path.
// If the document has no id, the file name without extension is used.
func LoadFile(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	g, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if g.ID == "" {
		g.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}

// Parse decodes a graph definition. Unknown fields are rejected so typos
// such as "next_if_ture" surface instead of silently ending the run.
func Parse(data []byte, format Format) (*domain.Graph, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse graph json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse graph yaml: %w", err)
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("graph document is empty")
	}
	return Decode(raw)
}

// Decode converts a loosely typed map (YAML document, MCP arguments, HTTP
// body) into a graph. A null successor is read as "end of run".
func Decode(raw map[string]any) (*domain.Graph, error) {
	var g domain.Graph
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &g,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid graph definition: %w", err)
	}
	return &g, nil
}

// ParseState decodes an initial state document. Whole JSON numbers become
// int64 so counters keep integer semantics.
func ParseState(data []byte, format Format) (domain.State, error) {
	var state domain.State
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&state); err != nil {
			return nil, fmt.Errorf("failed to parse state json: %w", err)
		}
		state = normalize(map[string]any(state)).(map[string]any)
	default:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse state yaml: %w", err)
		}
		state = domain.State(raw)
	}
	if state == nil {
		state = domain.State{}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

// LoadState reads an initial state from a YAML or JSON file.
func LoadState(path string) (domain.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return ParseState(data, FormatFor(path))
}

func normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, inner := range val {
			val[k] = normalize(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = normalize(inner)
		}
		return val
	}
	return v
}
