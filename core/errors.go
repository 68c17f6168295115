package core

import (
	"errors"
	"fmt"
)

var (
	// ErrRetryExhausted is returned when a sequential pipeline's validator
	// rejected the output past the retry ceiling.
	ErrRetryExhausted = errors.New("max retries exceeded")

	// ErrHopsExhausted is returned when routing or delegation exceeds the
	// hop ceiling without producing a final answer.
	ErrHopsExhausted = errors.New("max delegation hops exceeded")
)

// ConfigError marks a configuration that failed validation or compilation.
// It is fatal at load/reload time and is never partially applied: the prior
// live snapshot stays in service.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config error: " + e.Reason }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// ProtocolError reports a routing or delegation signal whose target does not
// resolve to a known agent. It terminates the run that produced it.
type ProtocolError struct {
	Agent  string // agent that emitted the signal
	Target string // unresolvable target name
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unknown agent %q (signalled by %q)", e.Target, e.Agent)
}

// ProviderError wraps a failed collaborator invocation (network failure,
// rate limit, provider rejection). The engine never retries it.
type ProviderError struct {
	Agent string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("agent %q invocation failed: %v", e.Agent, e.Err)
}

// Unwrap exposes the underlying provider failure.
func (e *ProviderError) Unwrap() error { return e.Err }
