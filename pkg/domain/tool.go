package domain

// ToolInfo describes a registered tool for introspection (HTTP, MCP, CLI).
type ToolInfo struct {
	Name        string   `json:"name" yaml:"name" mapstructure:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Reads       []string `json:"reads,omitempty" yaml:"reads,omitempty" mapstructure:"reads"`
	Writes      []string `json:"writes,omitempty" yaml:"writes,omitempty" mapstructure:"writes"`
}
