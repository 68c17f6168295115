package tool

import (
	"context"
	"fmt"

	"github.com/fabriq-ai/engine/protocol"
)

// AcceptOutput signals that a pipeline's output passed validation. Its result
// carries the acceptance marker that the validator echoes back into its reply,
// which the pipeline runner classifies to finish the run.
type AcceptOutput struct{}

// NewAcceptOutput creates the accept_output verdict tool.
func NewAcceptOutput() *AcceptOutput { return &AcceptOutput{} }

// Name implements Tool.
func (t *AcceptOutput) Name() string { return "accept_output" }

// Description implements Tool.
func (t *AcceptOutput) Description() string {
	return "Signal that the pipeline output is valid. Call this to accept and forward the output."
}

// Parameters implements Tool.
func (t *AcceptOutput) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Optional note about why the output was accepted",
			},
		},
	}
}

// Call implements Tool.
func (t *AcceptOutput) Call(_ context.Context, _ map[string]any) (any, error) {
	return protocol.MarkerAccepted, nil
}

// RejectOutput signals that a pipeline's output failed validation and the
// pipeline should restart with the rejection reason as feedback.
type RejectOutput struct{}

// NewRejectOutput creates the reject_output verdict tool.
func NewRejectOutput() *RejectOutput { return &RejectOutput{} }

// Name implements Tool.
func (t *RejectOutput) Name() string { return "reject_output" }

// Description implements Tool.
func (t *RejectOutput) Description() string {
	return "Signal that the pipeline output is invalid. Call this to reject and restart the pipeline."
}

// Parameters implements Tool.
func (t *RejectOutput) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{
				"type":        "string",
				"description": "Why the output was rejected",
			},
		},
		"required": []string{"reason"},
	}
}

// Call implements Tool.
func (t *RejectOutput) Call(_ context.Context, args map[string]any) (any, error) {
	reason, ok := stringArg(args, "reason")
	if !ok {
		return nil, NewToolError(t.Name(), "missing required argument 'reason'", "invalid_arguments")
	}
	return fmt.Sprintf("%s: %s", protocol.MarkerRejected, reason), nil
}
