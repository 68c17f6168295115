// Package runner implements the execution engine: it runs a compiled graph
// for one request, invoking agents through the collaborator contract,
// classifying their output into control signals and streaming events to the
// caller. Each run is an independent state machine
//
//	INIT → ACTIVE(node) → {ACTIVE(next) | AWAITING_VALIDATION | DONE | FAILED}
//
// with per-run state that is never shared across runs. Every stream carries
// exactly one done event, always last, regardless of how the run ends.
package runner
