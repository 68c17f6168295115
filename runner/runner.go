package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fabriq-ai/engine/catalog"
	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/core"
	"github.com/fabriq-ai/engine/graph"
	"github.com/fabriq-ai/engine/logging"
	"github.com/fabriq-ai/engine/protocol"
)

const (
	// DefaultMaxRetries is the sequential validator retry ceiling.
	DefaultMaxRetries = 3
	// DefaultMaxHops bounds routing iterations and delegation hand-offs.
	DefaultMaxHops = 5
	// DefaultEventBufferSize sets channel buffering for emitted events.
	DefaultEventBufferSize = 100
)

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxRetries is the validator attempt ceiling for sequential pipelines.
	MaxRetries int
	// MaxHops bounds orchestrator routing turns and decentralised hand-offs.
	MaxHops int
	// EventBufferSize sets the event channel buffer per run.
	EventBufferSize int
	// Logger receives run progress; defaults to NoOpLogger.
	Logger logging.Logger
}

// Runner executes compiled graphs. It is stateless between runs and safe for
// concurrent use; all per-run state lives in the run itself.
type Runner struct {
	invoker    core.Invoker
	maxRetries int
	maxHops    int
	bufSize    int
	logger     logging.Logger
}

// New constructs a Runner around the agent-invocation collaborator.
func New(invoker core.Invoker, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxRetries:      DefaultMaxRetries,
		MaxHops:         DefaultMaxHops,
		EventBufferSize: DefaultEventBufferSize,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		invoker:    invoker,
		maxRetries: opts.MaxRetries,
		maxHops:    opts.MaxHops,
		bufSize:    opts.EventBufferSize,
		logger:     opts.Logger,
	}
}

// Run executes the graph for one request and returns a lazy, finite,
// non-restartable event stream. The channel is closed after exactly one done
// event. The graph instance captured here is used for the whole run even if
// the cache publishes a newer snapshot meanwhile.
//
// Cancelling ctx stops the run at the next transition boundary, between
// agent invocations, never mid-call.
func (r *Runner) Run(ctx context.Context, g *graph.CompiledGraph, input string) <-chan core.Event {
	events := make(chan core.Event, r.bufSize)

	go func() {
		defer close(events)

		run := &runState{ctx: ctx, events: events, input: input}
		r.logger.Info("run started",
			"system", g.SystemID(), "topology", string(g.Topology()))

		var err error
		switch g.Topology() {
		case config.TopologySingle:
			err = r.runSingle(run, g)
		case config.TopologySequential:
			err = r.runSequential(run, g)
		case config.TopologyOrchestrator:
			err = r.runOrchestrator(run, g)
		case config.TopologyDecentralised:
			err = r.runDecentralised(run, g)
		default:
			err = core.NewConfigError("unknown topology %q", g.Topology())
		}

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Caller went away; nobody is reading the stream.
				return
			}
			r.logger.Error("run failed", "system", g.SystemID(), "error", err)
			run.emit(core.NewEvent(core.EventError, err.Error()))
		}

		run.emit(core.NewEvent(core.EventDone, ""))
	}()

	return events
}

// runState is the per-run execution scope: current position, accumulated
// transcript and counters. Created per run, discarded on completion.
type runState struct {
	ctx        context.Context
	events     chan<- core.Event
	input      string
	transcript []transcriptEntry
	hops       int
}

type transcriptEntry struct {
	agent string
	text  string
}

// emit delivers an event unless the run context is cancelled.
func (s *runState) emit(ev core.Event) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.events <- ev:
		return true
	}
}

// renderTranscript produces the running input for transcript-driven
// topologies: the original request followed by each agent's contribution.
func (s *runState) renderTranscript() string {
	if len(s.transcript) == 0 {
		return s.input
	}
	var b strings.Builder
	b.WriteString(s.input)
	for _, e := range s.transcript {
		b.WriteString("\n\n")
		b.WriteString(e.agent)
		b.WriteString(": ")
		b.WriteString(e.text)
	}
	return b.String()
}

// invoke emits the status event for a node and performs the collaborator
// call. Invoke failures are wrapped as ProviderError and never retried here.
func (r *Runner) invoke(run *runState, node catalog.Instance, system, input string) (string, error) {
	status := core.NewAgentEvent(core.EventStatus,
		fmt.Sprintf("Agent '%s' processing...", node.Name), node.Name)
	if !run.emit(status) {
		return "", run.ctx.Err()
	}

	r.logger.Debug("invoking agent", "agent", node.Name, "model", node.Model)

	out, err := r.invoker.Invoke(run.ctx, core.AgentCall{
		Agent:  node.Name,
		Model:  node.Model,
		System: system,
		Tools:  node.Tools,
		Input:  input,
	})
	if err != nil {
		return "", &core.ProviderError{Agent: node.Name, Err: err}
	}
	return out, nil
}

func (r *Runner) runSingle(run *runState, g *graph.CompiledGraph) error {
	node := g.Entry()
	out, err := r.invoke(run, node, node.Prompt, run.input)
	if err != nil {
		return err
	}
	run.emit(core.NewAgentEvent(core.EventToken, out, node.Name))
	return nil
}

func (r *Runner) runSequential(run *runState, g *graph.CompiledGraph) error {
	retries := newRetryController(r.maxRetries)
	nodes := g.Nodes()
	terminal := nodes[len(nodes)-1]

	for {
		for _, node := range nodes[:len(nodes)-1] {
			out, err := r.invoke(run, node, node.Prompt, run.renderTranscript())
			if err != nil {
				return err
			}
			run.transcript = append(run.transcript, transcriptEntry{node.Name, out})
		}

		out, err := r.invoke(run, terminal, terminal.Prompt, run.renderTranscript())
		if err != nil {
			return err
		}

		switch sig := protocol.ClassifyValidation(out).(type) {
		case protocol.Accept:
			run.emit(core.NewAgentEvent(core.EventToken, sig.Text, terminal.Name))
			return nil
		case protocol.Reject:
			run.emit(core.NewAgentEvent(core.EventValidationRejected,
				"Pipeline output rejected, retrying...", terminal.Name))
			if !retries.Reject() {
				return core.ErrRetryExhausted
			}
			r.logger.Info("pipeline rejected, restarting",
				"system", g.SystemID(), "attempt", retries.Attempt(), "reason", sig.Reason)
			// Restart from the first node with fresh per-run state.
			run.transcript = run.transcript[:0]
		}
	}
}

func (r *Runner) runOrchestrator(run *runState, g *graph.CompiledGraph) error {
	router := g.Entry()

	for turn := 0; turn < r.maxHops; turn++ {
		out, err := r.invoke(run, router, router.Prompt, run.renderTranscript())
		if err != nil {
			return err
		}

		switch sig := protocol.ClassifyRouting(out).(type) {
		case protocol.RouteDone:
			run.emit(core.NewAgentEvent(core.EventToken, sig.Response, router.Name))
			return nil
		case protocol.RouteTo:
			leaf, ok := g.Node(sig.Name)
			if !ok || leaf.Name == router.Name {
				return &core.ProtocolError{Agent: router.Name, Target: sig.Name}
			}
			run.transcript = append(run.transcript, transcriptEntry{router.Name, out})

			leafOut, err := r.invoke(run, leaf, leaf.Prompt, run.renderTranscript())
			if err != nil {
				return err
			}
			// Control returns to the router with the leaf's output appended.
			run.transcript = append(run.transcript, transcriptEntry{leaf.Name, leafOut})
		case protocol.FinalText:
			run.emit(core.NewAgentEvent(core.EventToken, sig.Text, router.Name))
			return nil
		}
	}

	return core.ErrHopsExhausted
}

func (r *Runner) runDecentralised(run *runState, g *graph.CompiledGraph) error {
	node := g.Entry()
	input := run.input

	for {
		out, err := r.invoke(run, node, delegationPrompt(node, g), input)
		if err != nil {
			return err
		}

		switch sig := protocol.ClassifyDelegation(out).(type) {
		case protocol.Delegate:
			peer, ok := g.Node(sig.To)
			if !ok || peer.Name == node.Name {
				return &core.ProtocolError{Agent: node.Name, Target: sig.To}
			}
			run.hops++
			if run.hops > r.maxHops {
				return core.ErrHopsExhausted
			}
			r.logger.Debug("delegation", "from", node.Name, "to", peer.Name, "hop", run.hops)
			node = peer
			input = sig.Message
		case protocol.FinalText:
			run.emit(core.NewAgentEvent(core.EventToken, sig.Text, node.Name))
			return nil
		}
	}
}

// delegationPrompt extends a decentralised node's system prompt with
// hand-off instructions and the peer roster.
func delegationPrompt(node catalog.Instance, g *graph.CompiledGraph) string {
	var b strings.Builder
	b.WriteString(node.Prompt)
	b.WriteString("\n\n## Delegation\n")
	b.WriteString("You can delegate to other agents if the request is outside your expertise.\n")
	b.WriteString("To delegate, respond ONLY with JSON:\n")
	b.WriteString(`{"delegate": "agent_name", "message": "what you need them to do"}`)
	b.WriteString("\n\nAvailable agents:\n")
	for _, p := range g.Peers(node.Name) {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Description)
	}
	b.WriteString("\nIf you can handle the request yourself, respond normally (no JSON).")
	return b.String()
}
