package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/stepgraph/pkg/schema"
)

// ToolConfig declares an external command exposed as a tool.
type ToolConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Inputs maps state keys the command needs to schema type names
	// ("string", "int?", "[string]"). The state is checked before each run.
	Inputs map[string]string `yaml:"inputs" json:"inputs"`
}

// InputSchema parses Inputs.
func (c ToolConfig) InputSchema() (schema.Schema, error) {
	if len(c.Inputs) == 0 {
		return nil, nil
	}
	s, err := schema.ParseTypeMap(c.Inputs)
	if err != nil {
		return nil, fmt.Errorf("tool %q inputs: %w", c.Name, err)
	}
	return s, nil
}

// ConfigFile represents the structure of tools.yaml
type ConfigFile struct {
	Tools []ToolConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON) and returns the
// declared tools in file order.
func LoadTools(path string) ([]ToolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	seen := make(map[string]bool, len(cfg.Tools))
	for i, tool := range cfg.Tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tools[%d]: name is required", i)
		}
		if tool.Command == "" {
			return nil, fmt.Errorf("tool %q: command is required", tool.Name)
		}
		if _, err := tool.InputSchema(); err != nil {
			return nil, err
		}
		if seen[tool.Name] {
			return nil, fmt.Errorf("tool %q: declared twice", tool.Name)
		}
		seen[tool.Name] = true
	}
	return cfg.Tools, nil
}
