// Package core provides the foundational domain types shared by the engine:
//
//   - Events (the ordered, immutable records a run streams to its caller)
//   - The Invoker collaborator contract (one model invocation per call)
//   - The error taxonomy (configuration, protocol, provider, exhaustion)
//
// The package intentionally keeps implementation concerns (graph compilation,
// execution, scheduling, transports) out of scope so that every other package
// can depend on it without cycles.
package core
