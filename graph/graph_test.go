package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/core"
)

func system(topology config.Topology, types ...string) config.System {
	sys := config.System{ID: "test", Topology: topology}
	for _, t := range types {
		sys.Agents = append(sys.Agents, config.AgentRef{Type: t, Prompt: "prompt for " + t})
	}
	return sys
}

func TestCompile_Single(t *testing.T) {
	g, err := Compile(system(config.TopologySingle, "coder"))
	require.NoError(t, err)

	assert.Equal(t, "test", g.SystemID())
	assert.Equal(t, config.TopologySingle, g.Topology())
	assert.Equal(t, "coder_0", g.Entry().Name)
	assert.Len(t, g.Nodes(), 1)
}

func TestCompile_SingleRejectsMultipleAgents(t *testing.T) {
	_, err := Compile(system(config.TopologySingle, "coder", "writer"))

	var cfgErr *core.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "exactly one agent")
}

func TestCompile_Sequential(t *testing.T) {
	g, err := Compile(system(config.TopologySequential, "researcher", "writer", "validator"))
	require.NoError(t, err)

	nodes := g.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "researcher_0", nodes[0].Name)
	assert.Equal(t, "writer_1", nodes[1].Name)
	assert.Equal(t, "validator_2", nodes[2].Name)
	assert.True(t, nodes[2].IsValidator())
}

func TestCompile_SequentialRequiresValidatorTerminal(t *testing.T) {
	_, err := Compile(system(config.TopologySequential, "researcher", "writer"))

	var cfgErr *core.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "validator")
}

func TestCompile_EmptyAgents(t *testing.T) {
	_, err := Compile(config.System{ID: "test", Topology: config.TopologySingle})

	var cfgErr *core.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCompile_UnknownAgentType(t *testing.T) {
	_, err := Compile(system(config.TopologySingle, "pilot"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent type")
}

func TestCompile_OrchestratorLeaves(t *testing.T) {
	g, err := Compile(system(config.TopologyOrchestrator, "analyst", "researcher", "coder"))
	require.NoError(t, err)

	assert.Equal(t, "analyst_0", g.Entry().Name)

	leaves := g.Leaves()
	require.Len(t, leaves, 2)
	assert.Equal(t, "researcher_1", leaves[0].Name)
	assert.Equal(t, "coder_2", leaves[1].Name)
}

func TestCompile_DecentralisedPeers(t *testing.T) {
	g, err := Compile(system(config.TopologyDecentralised, "researcher", "coder", "writer"))
	require.NoError(t, err)

	peers := g.Peers("coder_1")
	require.Len(t, peers, 2)
	assert.Equal(t, "researcher_0", peers[0].Name)
	assert.Equal(t, "writer_2", peers[1].Name)
}

func TestNode_Lookup(t *testing.T) {
	g, err := Compile(system(config.TopologyDecentralised, "researcher", "coder"))
	require.NoError(t, err)

	inst, ok := g.Node("coder_1")
	require.True(t, ok)
	assert.Equal(t, "coder", inst.Type)

	_, ok = g.Node("ghost_9")
	assert.False(t, ok)
}

func TestCompile_NamesStableAcrossCompiles(t *testing.T) {
	sys := system(config.TopologySequential, "researcher", "coder", "validator")

	g1, err := Compile(sys)
	require.NoError(t, err)
	g2, err := Compile(sys)
	require.NoError(t, err)

	for i := range g1.Nodes() {
		assert.Equal(t, g1.Nodes()[i].Name, g2.Nodes()[i].Name)
	}
}
