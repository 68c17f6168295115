// Package protocol classifies raw agent output into control signals. Agents
// embed routing and delegation directives as JSON in their free-text replies;
// validators surface accept/reject markers produced by their capability
// tools. Classification is strict on shape but never fails: malformed or
// unexpected input always degrades to FinalText so a run can finish cleanly
// instead of crashing on model output.
package protocol

import (
	"strings"

	"github.com/tidwall/gjson"
)

// DoneTarget is the reserved routing target that ends an orchestrator run.
const DoneTarget = "__done__"

// Markers emitted by the validator capability tools.
const (
	MarkerAccepted = "__ACCEPTED__"
	MarkerRejected = "__REJECTED__"
)

// Signal is the classification result for one agent output. Concrete signal
// types implement the unexported isSignal marker enabling a closed set.
type Signal interface{ isSignal() }

// FinalText means no control signal was found: the output is a final answer.
type FinalText struct{ Text string }

func (FinalText) isSignal() {}

// RouteTo is an orchestrator directive to invoke the named leaf.
type RouteTo struct{ Name string }

func (RouteTo) isSignal() {}

// RouteDone is an orchestrator directive to finish with the given response.
type RouteDone struct{ Response string }

func (RouteDone) isSignal() {}

// Delegate is a decentralised hand-off to a peer with a new input message.
type Delegate struct {
	To      string
	Message string
}

func (Delegate) isSignal() {}

// Accept means the validator accepted the pipeline output. Text carries the
// validator's free text with the marker stripped.
type Accept struct{ Text string }

func (Accept) isSignal() {}

// Reject means the validator rejected the pipeline output.
type Reject struct{ Reason string }

func (Reject) isSignal() {}

// ClassifyRouting parses orchestrator output. Recognized shapes:
//
//	{"agent": "<name>"}                          → RouteTo
//	{"agent": "__done__", "response": "<text>"}  → RouteDone
//
// Anything else, including invalid JSON or a non-string agent field, is
// treated as a final answer. A done directive with an empty or missing
// response keeps the router's raw output rather than finishing with nothing.
func ClassifyRouting(raw string) Signal {
	obj, ok := parseObject(raw)
	if !ok {
		return FinalText{Text: raw}
	}
	agent := obj.Get("agent")
	if agent.Type != gjson.String || agent.String() == "" {
		return FinalText{Text: raw}
	}
	if agent.String() == DoneTarget {
		response := obj.Get("response").String()
		if response == "" {
			response = raw
		}
		return RouteDone{Response: response}
	}
	return RouteTo{Name: agent.String()}
}

// ClassifyDelegation parses decentralised output. Recognized shape:
//
//	{"delegate": "<name>", "message": "<text>"}  → Delegate
//
// Plain text, or JSON lacking a string delegate field, is a final answer.
func ClassifyDelegation(raw string) Signal {
	obj, ok := parseObject(raw)
	if !ok {
		return FinalText{Text: raw}
	}
	target := obj.Get("delegate")
	if target.Type != gjson.String || target.String() == "" {
		return FinalText{Text: raw}
	}
	return Delegate{To: target.String(), Message: obj.Get("message").String()}
}

// ClassifyValidation scans validator output for accept/reject markers. When
// both appear the earlier one wins (mirrors tool-call order). Output without
// any marker is an implicit accept: a validator that invoked neither
// capability is treated as having approved the pipeline.
func ClassifyValidation(raw string) Signal {
	ai := strings.Index(raw, MarkerAccepted)
	ri := strings.Index(raw, MarkerRejected)

	switch {
	case ri >= 0 && (ai < 0 || ri < ai):
		reason := raw[ri+len(MarkerRejected):]
		reason = strings.TrimPrefix(reason, ":")
		return Reject{Reason: strings.TrimSpace(reason)}
	case ai >= 0:
		text := raw[:ai] + raw[ai+len(MarkerAccepted):]
		return Accept{Text: strings.TrimSpace(text)}
	default:
		return Accept{Text: strings.TrimSpace(raw)}
	}
}

// parseObject strictly parses the entire trimmed text as a JSON object.
func parseObject(raw string) (gjson.Result, bool) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "{") || !gjson.Valid(text) {
		return gjson.Result{}, false
	}
	obj := gjson.Parse(text)
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	return obj, true
}
