package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an event within a run's stream.
type EventType string

const (
	// EventStatus announces the agent about to run or other progress updates.
	EventStatus EventType = "status"
	// EventToken carries final response content.
	EventToken EventType = "token"
	// EventValidationRejected signals that a validator rejected the pipeline output.
	EventValidationRejected EventType = "validation_rejected"
	// EventError reports a run-terminating failure.
	EventError EventType = "error"
	// EventDone terminates every stream. Exactly one per run, always last.
	EventDone EventType = "done"
)

// Event is the unit of communication between a run and its consumer. After
// emission it must be treated as immutable. Events are delivered in strict
// emission order on a per-run channel; there is no ordering guarantee across
// runs.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Content   string    `json:"content"`
	Agent     string    `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID and UTC timestamp.
func NewEvent(t EventType, content string) Event {
	return Event{
		ID:        NewID(),
		Type:      t,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentEvent creates an event attributed to a named agent instance.
func NewAgentEvent(t EventType, content, agent string) Event {
	e := NewEvent(t, content)
	e.Agent = agent
	return e
}

// NewID generates a unique identifier for events and runs.
func NewID() string { return uuid.NewString() }
