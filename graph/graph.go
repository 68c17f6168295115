// Package graph compiles a system's topology and ordered agent instances
// into an executable CompiledGraph. Compilation resolves every agent type,
// derives instance names and enforces the per-topology invariants; the result
// is immutable and rebuilt wholesale on reload, never patched.
package graph

import (
	"github.com/fabriq-ai/engine/catalog"
	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/core"
)

// CompiledGraph is the executable state machine derived from one system.
// The transition semantics are fixed per topology:
//
//	single:        one node; entry = terminal
//	sequential:    linear chain; entry = first; terminal = last (validator)
//	orchestrator:  star; entry routes to leaves, control returns to entry
//	decentralised: complete graph; entry = first; any node may hand off
type CompiledGraph struct {
	systemID string
	topology config.Topology
	nodes    []catalog.Instance
	index    map[string]int
}

// Compile builds a CompiledGraph from a system definition. All failures are
// core.ConfigError: unknown agent types, an empty agent list, a single-agent
// topology with more than one instance, or a sequential pipeline whose last
// instance is not a validator type.
func Compile(sys config.System) (*CompiledGraph, error) {
	if len(sys.Agents) == 0 {
		return nil, core.NewConfigError("system %q has no agents", sys.ID)
	}

	nodes := make([]catalog.Instance, 0, len(sys.Agents))
	index := make(map[string]int, len(sys.Agents))
	for i, ref := range sys.Agents {
		inst, err := catalog.Merge(ref.Type, ref.Prompt, i)
		if err != nil {
			return nil, core.NewConfigError("system %q: %v", sys.ID, err)
		}
		// Names embed the ordinal index, so uniqueness holds by construction.
		index[inst.Name] = i
		nodes = append(nodes, inst)
	}

	switch sys.Topology {
	case config.TopologySingle:
		if len(nodes) != 1 {
			return nil, core.NewConfigError(
				"system %q: single topology requires exactly one agent, got %d",
				sys.ID, len(nodes))
		}
	case config.TopologySequential:
		if !nodes[len(nodes)-1].IsValidator() {
			return nil, core.NewConfigError(
				"system %q: sequential topology requires a validator-typed last agent, got %q",
				sys.ID, nodes[len(nodes)-1].Type)
		}
	case config.TopologyOrchestrator, config.TopologyDecentralised:
		// Entry is the first instance; any non-empty list is valid.
	default:
		return nil, core.NewConfigError("system %q has unknown topology %q", sys.ID, sys.Topology)
	}

	return &CompiledGraph{
		systemID: sys.ID,
		topology: sys.Topology,
		nodes:    nodes,
		index:    index,
	}, nil
}

// SystemID returns the id of the system this graph was compiled from.
func (g *CompiledGraph) SystemID() string { return g.systemID }

// Topology returns the graph's control-flow pattern.
func (g *CompiledGraph) Topology() config.Topology { return g.topology }

// Entry returns the entry node: the only node, the first pipeline stage, the
// orchestrator router, or the first decentralised peer.
func (g *CompiledGraph) Entry() catalog.Instance { return g.nodes[0] }

// Nodes returns the ordered agent instances. Callers must not mutate the
// returned slice.
func (g *CompiledGraph) Nodes() []catalog.Instance { return g.nodes }

// Node resolves an instance by its derived name.
func (g *CompiledGraph) Node(name string) (catalog.Instance, bool) {
	i, ok := g.index[name]
	if !ok {
		return catalog.Instance{}, false
	}
	return g.nodes[i], true
}

// Leaves returns the nodes reachable only through router delegation in an
// orchestrator graph: every node except the entry.
func (g *CompiledGraph) Leaves() []catalog.Instance { return g.nodes[1:] }

// Peers returns all nodes except the named one; the delegation targets
// available to a decentralised node.
func (g *CompiledGraph) Peers(name string) []catalog.Instance {
	peers := make([]catalog.Instance, 0, len(g.nodes)-1)
	for _, n := range g.nodes {
		if n.Name != name {
			peers = append(peers, n)
		}
	}
	return peers
}
