// Package catalog holds the fixed agent type catalog: the only place where
// models and capability sets are assigned. Systems in the configuration
// reference these types by name; the catalog is compiled into the binary and
// never changes at runtime.
package catalog

import (
	"fmt"
	"sort"

	"github.com/fabriq-ai/engine/core"
)

// Capability tool names carried by validator-typed agents. A sequential
// pipeline's terminal instance must carry both.
const (
	ToolAcceptOutput = "accept_output"
	ToolRejectOutput = "reject_output"
)

// TypeDefinition describes a fixed agent type: the model it runs on and the
// capability set bound to it. Immutable; owned by the catalog.
type TypeDefinition struct {
	Name        string
	Description string
	Model       string
	Tools       []string
}

const defaultModel = "claude-sonnet-4-20250514"

var registry = map[string]TypeDefinition{
	"researcher": {
		Name:        "researcher",
		Description: "Expert at web research and data analysis.",
		Model:       defaultModel,
		Tools:       []string{"web_search"},
	},
	"coder": {
		Name:        "coder",
		Description: "Senior software engineer and architect.",
		Model:       defaultModel,
		Tools:       []string{"calculate"},
	},
	"writer": {
		Name:        "writer",
		Description: "Creative writer for marketing and content.",
		Model:       defaultModel,
	},
	"analyst": {
		Name:        "analyst",
		Description: "Business analyst specialising in structured reasoning.",
		Model:       defaultModel,
		Tools:       []string{"calculate", "web_search"},
	},
	"sourcer": {
		Name:        "sourcer",
		Description: "Finds and profiles candidates for a given role.",
		Model:       defaultModel,
		Tools:       []string{"web_search"},
	},
	"screener": {
		Name:        "screener",
		Description: "Screens and scores candidates against a job description.",
		Model:       defaultModel,
		Tools:       []string{"calculate"},
	},
	"recruiter": {
		Name:        "recruiter",
		Description: "End-to-end recruiting coordinator: discovers roles, sources and scores candidates.",
		Model:       defaultModel,
		Tools:       []string{"web_search", "calculate"},
	},
	"notifier": {
		Name:        "notifier",
		Description: "Drafts and formats notifications for the requested delivery channel.",
		Model:       defaultModel,
	},
	"validator": {
		Name:        "validator",
		Description: "Reviews pipeline output and accepts or rejects it.",
		Model:       defaultModel,
		Tools:       []string{ToolAcceptOutput, ToolRejectOutput},
	},
}

// Resolve looks up an agent type by name. Unknown types are a ConfigError.
func Resolve(name string) (TypeDefinition, error) {
	def, ok := registry[name]
	if !ok {
		return TypeDefinition{}, core.NewConfigError(
			"unknown agent type %q (available: %v)", name, Types())
	}
	return def, nil
}

// Types returns the sorted names of all registered agent types.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instance is a configured occurrence of an agent type within a system. It
// merges the type definition with the instance-level prompt and carries the
// derived name "{type}_{index}". Instances are created at compile time and
// never mutated afterwards.
type Instance struct {
	Name        string
	Type        string
	Description string
	Model       string
	Tools       []string
	Prompt      string
}

// Merge combines an agent type reference with its catalog definition,
// deriving the instance name from the type and its ordinal index. Names are
// stable across reloads as long as the system's agent list is unchanged.
func Merge(agentType, prompt string, index int) (Instance, error) {
	def, err := Resolve(agentType)
	if err != nil {
		return Instance{}, err
	}
	return Instance{
		Name:        fmt.Sprintf("%s_%d", agentType, index),
		Type:        agentType,
		Description: def.Description,
		Model:       def.Model,
		Tools:       def.Tools,
		Prompt:      prompt,
	}, nil
}

// IsValidator reports whether the instance carries both accept and reject
// capabilities, making it eligible as a sequential pipeline terminal.
func (i Instance) IsValidator() bool {
	var accept, reject bool
	for _, t := range i.Tools {
		switch t {
		case ToolAcceptOutput:
			accept = true
		case ToolRejectOutput:
			reject = true
		}
	}
	return accept && reject
}
