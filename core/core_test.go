package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventStatus, "Processing request...")

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventStatus, e.Type)
	assert.Equal(t, "Processing request...", e.Content)
	assert.Empty(t, e.Agent)
	assert.False(t, e.Timestamp.IsZero())
}

func TestNewAgentEvent(t *testing.T) {
	e := NewAgentEvent(EventToken, "answer", "coder_1")

	assert.Equal(t, EventToken, e.Type)
	assert.Equal(t, "coder_1", e.Agent)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("system %q references unknown agent type %q", "research", "pilot")

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "unknown agent type")
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("rate limited")
	err := &ProviderError{Agent: "researcher_0", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "researcher_0")
}

func TestProtocolError(t *testing.T) {
	err := &ProtocolError{Agent: "router_0", Target: "ghost_9"}

	assert.Contains(t, err.Error(), "ghost_9")
	assert.Contains(t, err.Error(), "router_0")
}

func TestProtocolError_WrapsCleanly(t *testing.T) {
	inner := &ProtocolError{Agent: "a", Target: "b"}
	wrapped := fmt.Errorf("run failed: %w", inner)

	var protoErr *ProtocolError
	assert.ErrorAs(t, wrapped, &protoErr)
	assert.Equal(t, "b", protoErr.Target)
}
