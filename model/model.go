// Package model provides collaborator implementations of the core.Invoker
// contract. Provider adapters live in the anthropic and openai subpackages;
// this package holds the shared conversation shaping and a MockInvoker for
// tests and examples.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/fabriq-ai/engine/core"
)

// MockInvoker is a lightweight in-memory Invoker useful for tests & examples.
// Responses are scripted per agent instance name and consumed in order; an
// agent with no scripted response yields a deterministic placeholder.
type MockInvoker struct {
	mu        sync.Mutex
	responses map[string][]string
	failures  map[string]error
	calls     []core.AgentCall
}

// NewMockInvoker constructs an empty MockInvoker.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		responses: make(map[string][]string),
		failures:  make(map[string]error),
	}
}

// AddResponse queues a canned completion for the named agent. Repeated calls
// queue additional responses consumed on successive invocations.
func (m *MockInvoker) AddResponse(agent, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[agent] = append(m.responses[agent], response)
}

// FailWith makes every invocation of the named agent return err.
func (m *MockInvoker) FailWith(agent string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[agent] = err
}

// Invoke implements core.Invoker.
func (m *MockInvoker) Invoke(_ context.Context, call core.AgentCall) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call)

	if err, ok := m.failures[call.Agent]; ok {
		return "", err
	}

	queue := m.responses[call.Agent]
	if len(queue) == 0 {
		return fmt.Sprintf("Mock response from %s", call.Agent), nil
	}
	next := queue[0]
	m.responses[call.Agent] = queue[1:]
	return next, nil
}

// Calls returns every AgentCall seen so far, in invocation order.
func (m *MockInvoker) Calls() []core.AgentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.AgentCall(nil), m.calls...)
}

// CallsFor returns the calls made to one agent, in order.
func (m *MockInvoker) CallsFor(agent string) []core.AgentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.AgentCall
	for _, c := range m.calls {
		if c.Agent == agent {
			out = append(out, c)
		}
	}
	return out
}
