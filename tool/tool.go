// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (web search, computations, validation
// verdicts) with JSON schema described arguments and consistent error
// handling.
package tool

import (
	"context"
	"fmt"
	"sort"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tools are attached to agents by name through the agent type catalog and
// surfaced to the LLM as function definitions. Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define proper JSON schema for parameters
//   - Return model-visible failure text rather than erroring where the LLM
//     can reasonably recover (e.g. a search timeout)
//   - Be thread-safe: one instance serves concurrent runs
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is provided to the LLM to help it decide when to call the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with arguments parsed from the model's JSON.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Registry maps tool names to implementations. The zero value is unusable;
// construct with NewRegistry or Builtins.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. Registering two tools
// with the same name keeps the last one.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Builtins returns a registry with every built-in tool.
func Builtins() *Registry {
	return NewRegistry(
		NewCalculate(),
		NewWebSearch(),
		NewAcceptOutput(),
		NewRejectOutput(),
	)
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Resolve maps a list of tool names to implementations, failing on the first
// unknown name.
func (r *Registry) Resolve(names []string) ([]Tool, error) {
	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
