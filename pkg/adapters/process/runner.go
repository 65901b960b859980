package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/loader"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/schema"
)

// EnvPrefix prefixes the environment variables carrying top-level scalar
// state values.
const EnvPrefix = "STEPGRAPH_ARG_"

const waitDelay = 2 * time.Second

// Tool runs an external command as a registry.Tool.
// The state is written to stdin as JSON and the command must print a JSON
// object (the fragment) on stdout. Empty output is an empty fragment.
type Tool struct {
	config    ToolConfig
	baseDir   string
	inputs    schema.Schema
	configErr error
}

// Option configures process tools.
type Option func(*Tool)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(t *Tool) {
		t.baseDir = dir
	}
}

// NewTool creates a tool for the given config.
func NewTool(config ToolConfig, opts ...Option) *Tool {
	t := &Tool{config: config}
	t.inputs, t.configErr = config.InputSchema()
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds every configured command to reg.
func Register(reg *registry.Registry, configs []ToolConfig, opts ...Option) error {
	for _, cfg := range configs {
		inputs, err := cfg.InputSchema()
		if err != nil {
			return err
		}
		info := domain.ToolInfo{Name: cfg.Name, Description: cfg.Description, Reads: inputs.Keys()}
		if err := reg.RegisterInfo(info, NewTool(cfg, opts...)); err != nil {
			return err
		}
	}
	return nil
}

// Apply implements registry.Tool.
func (t *Tool) Apply(ctx context.Context, state domain.State) (domain.State, error) {
	if t.configErr != nil {
		return nil, t.configErr
	}
	if err := schema.Validate(t.inputs, state); err != nil {
		return nil, fmt.Errorf("invalid input for %s: %w", t.config.Name, err)
	}

	input, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	// The process dies with the run's context.
	cmd := exec.CommandContext(ctx, t.config.Command, t.config.Args...)
	cmd.Dir = t.baseDir
	// Children that inherited the pipes must not hold the run hostage.
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = append(cmd.Environ(), t.environment(state)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return domain.State{}, nil
	}
	if out[0] != '{' {
		return nil, fmt.Errorf("output is not a JSON object: %q. Stderr: %s", truncate(string(out), 80), strings.TrimSpace(stderr.String()))
	}

	fragment, err := loader.ParseState(out, loader.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("invalid output: %w", err)
	}
	return fragment, nil
}

// environment copies the configured env and the top-level scalars of state.
// Nested values are only available through stdin.
func (t *Tool) environment(state domain.State) []string {
	env := make([]string, 0, len(t.config.Environment)+len(state))
	for k, v := range t.config.Environment {
		env = append(env, k+"="+v)
	}
	for _, k := range state.Keys() {
		var val string
		switch v := state[k].(type) {
		case string:
			val = v
		case bool, int, int64, float64:
			val = fmt.Sprintf("%v", v)
		default:
			continue
		}
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+val)
	}
	return env
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
