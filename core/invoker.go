package core

import "context"

// AgentCall carries everything a collaborator needs to perform one model
// invocation on behalf of an agent instance.
type AgentCall struct {
	// Agent is the instance name, e.g. "researcher_0". Used for attribution.
	Agent string
	// Model is the provider model identifier from the agent type definition.
	Model string
	// System is the instance-level system prompt.
	System string
	// Tools is the capability set bound to the agent type.
	Tools []string
	// Input is the running input: the request prompt, the accumulated
	// transcript, or a delegated message depending on the topology.
	Input string
}

// Invoker is the collaborator contract for agent invocation. Implementations
// own the model call, tool execution and any provider-level retry or timeout
// policy; the engine never retries an Invoke and treats any failure as a
// ProviderError.
type Invoker interface {
	Invoke(ctx context.Context, call AgentCall) (string, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, call AgentCall) (string, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, call AgentCall) (string, error) {
	return f(ctx, call)
}
