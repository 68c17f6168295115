// Package engine compiles a declarative description of agent topologies into
// executable graphs, runs those graphs against requests or scheduled
// triggers, and streams progress events to the caller. Most applications
// interact with this package by:
//  1. Loading a config.Config and creating an Engine via New()
//  2. Starting runs with Run(), consuming the returned event stream
//  3. Hot-swapping configuration with Reload()
//
// The Engine owns the current configuration snapshot: an immutable pairing of
// compiled graphs and scheduler timers, replaced wholesale by Reload through
// a single atomic pointer swap. Runs capture the snapshot current at their
// start and are never disturbed by later reloads.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/core"
	"github.com/fabriq-ai/engine/graph"
	"github.com/fabriq-ai/engine/logging"
	"github.com/fabriq-ai/engine/runner"
	"github.com/fabriq-ai/engine/schedule"
)

// ErrUnknownSystem is returned by Run for a system id absent from the
// current snapshot.
var ErrUnknownSystem = errors.New("unknown system")

// Snapshot is one immutable configuration generation: the parsed config and
// every system's compiled graph. Published snapshots are read-only; a reload
// builds a complete replacement before swapping the pointer.
type Snapshot struct {
	Config *config.Config
	Graphs map[string]*graph.CompiledGraph
}

// Options configures the Engine instance.
type Options struct {
	// MaxRetries is the sequential validator attempt ceiling.
	MaxRetries int
	// MaxHops bounds routing turns and delegation hand-offs per run.
	MaxHops int
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Engine is the façade aggregating the graph cache, the execution engine and
// the scheduler. Public methods are safe for concurrent use.
type Engine struct {
	invoker core.Invoker
	runner  *runner.Runner
	logger  logging.Logger

	snapshot atomic.Pointer[Snapshot]

	mu    sync.Mutex // serializes Reload/Close
	sched *schedule.Scheduler
}

// New compiles the initial configuration, publishes the first snapshot and
// starts the scheduler. A configuration that fails to compile yields a
// core.ConfigError and no Engine.
func New(cfg *config.Config, invoker core.Invoker, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		MaxRetries: runner.DefaultMaxRetries,
		MaxHops:    runner.DefaultMaxHops,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		invoker: invoker,
		logger:  opts.Logger,
		runner: runner.New(invoker, func(o *runner.Options) {
			o.MaxRetries = opts.MaxRetries
			o.MaxHops = opts.MaxHops
			o.Logger = opts.Logger
		}),
	}

	snap, sched, err := e.build(cfg)
	if err != nil {
		return nil, err
	}
	e.snapshot.Store(snap)
	e.sched = sched
	sched.Start()

	e.logger.Info("engine started",
		"systems", len(cfg.Systems),
		"endpoints", len(cfg.Endpoints),
		"async_functions", len(cfg.AsyncFunctions))

	return e, nil
}

// build compiles every system and constructs a stopped scheduler for the new
// configuration. Nothing is published here: any failure leaves the caller's
// live state untouched.
func (e *Engine) build(cfg *config.Config) (*Snapshot, *schedule.Scheduler, error) {
	graphs := make(map[string]*graph.CompiledGraph, len(cfg.Systems))
	for _, sys := range cfg.Systems {
		g, err := graph.Compile(sys)
		if err != nil {
			return nil, nil, err
		}
		graphs[sys.ID] = g
	}

	jobs := make([]schedule.Job, 0, len(cfg.AsyncFunctions))
	for _, fn := range cfg.AsyncFunctions {
		g, ok := graphs[fn.SystemID]
		if !ok {
			return nil, nil, core.NewConfigError(
				"async function references unknown system id %q", fn.SystemID)
		}
		spec, err := schedule.Build(fn.Schedule)
		if err != nil {
			return nil, nil, err
		}
		jobs = append(jobs, schedule.Job{
			SystemID: fn.SystemID,
			Prompt:   fn.Prompt,
			Graph:    g,
			Schedule: spec,
		})
	}

	snap := &Snapshot{Config: cfg, Graphs: graphs}
	sched := schedule.New(e.runner, jobs, func(o *schedule.Options) { o.Logger = e.logger })
	return snap, sched, nil
}

// Run executes a system's graph for one request. The returned stream is
// lazy, finite and non-restartable, always terminated by exactly one done
// event. The run keeps the graph instance resolved here for its whole
// lifetime, regardless of concurrent reloads.
func (e *Engine) Run(ctx context.Context, systemID, input string) (<-chan core.Event, error) {
	snap := e.snapshot.Load()
	g, ok := snap.Graphs[systemID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSystem, systemID)
	}
	return e.runner.Run(ctx, g, input), nil
}

// ReloadResult reports what a successful reload published.
type ReloadResult struct {
	Systems   int `json:"systems"`
	Endpoints int `json:"endpoints"`
}

// Reload replaces the live snapshot with one built from cfg. The new
// configuration is fully compiled and its timers constructed before anything
// is published; on failure the prior snapshot and timers keep serving.
// Existing timers are stopped before the new ones start, so no schedule can
// fire twice for the same instant. In-flight runs are not disturbed.
func (e *Engine) Reload(cfg *config.Config) (ReloadResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, sched, err := e.build(cfg)
	if err != nil {
		e.logger.Error("reload failed, keeping previous snapshot", "error", err)
		return ReloadResult{}, err
	}

	if e.sched != nil {
		e.sched.Stop()
	}
	e.snapshot.Store(snap)
	e.sched = sched
	sched.Start()

	e.logger.Info("config reloaded",
		"systems", len(cfg.Systems), "endpoints", len(cfg.Endpoints))

	return ReloadResult{
		Systems:   len(cfg.Systems),
		Endpoints: len(cfg.Endpoints),
	}, nil
}

// Health describes the engine as seen through the current snapshot.
type Health struct {
	Status    string `json:"status"`
	Systems   int    `json:"systems"`
	Endpoints int    `json:"endpoints"`
}

// Health reads liveness counts from the current snapshot.
func (e *Engine) Health() Health {
	snap := e.snapshot.Load()
	return Health{
		Status:    "healthy",
		Systems:   len(snap.Config.Systems),
		Endpoints: len(snap.Config.Endpoints),
	}
}

// Current returns the live snapshot. Callers must treat it as read-only.
func (e *Engine) Current() *Snapshot { return e.snapshot.Load() }

// Close stops the scheduler. Runs already in flight finish on their own.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched != nil {
		e.sched.Stop()
	}
}
