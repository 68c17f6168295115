package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fabriq-ai/engine/core"
	"github.com/fabriq-ai/engine/graph"
	"github.com/fabriq-ai/engine/logging"
	"github.com/fabriq-ai/engine/runner"
)

// Job binds one async function to the compiled graph from the snapshot it was
// built against. The graph reference is captured at construction so scheduled
// runs keep using it even after a reload publishes a newer snapshot.
type Job struct {
	SystemID string
	Prompt   string
	Graph    *graph.CompiledGraph
	Schedule cron.Schedule
}

// Options holds configuration overrides passed to New().
type Options struct {
	Logger logging.Logger
}

// Scheduler owns one timer per async function. A Scheduler belongs to exactly
// one snapshot: on reload the old instance is stopped before its replacement
// starts, so a schedule never fires twice for the same instant.
type Scheduler struct {
	cron   *cron.Cron
	runner *runner.Runner
	jobs   []Job
	logger logging.Logger

	mu      sync.Mutex
	running bool
}

// New builds a stopped scheduler with one entry per job.
func New(r *runner.Runner, jobs []Job, optFns ...func(o *Options)) *Scheduler {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		runner: r,
		jobs:   jobs,
		logger: opts.Logger,
	}
	for _, job := range s.jobs {
		job := job
		s.cron.Schedule(job.Schedule, cron.FuncJob(func() { s.fire(job) }))
	}
	return s
}

// Start begins firing timers. Starting twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
}

// Stop halts all timers. Runs already in flight are not interrupted; they
// finish against the graph they captured. Stopping twice is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
}

// Running reports whether the scheduler's timers are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Jobs returns the number of scheduled async functions.
func (s *Scheduler) Jobs() int { return len(s.jobs) }

// fire executes one scheduled run. There is no external caller: the run is
// seeded with the function's prompt, contract validation does not apply, and
// events are drained into the log.
func (s *Scheduler) fire(job Job) {
	s.logger.Info("async function fired", "system", job.SystemID)

	var final string
	for ev := range s.runner.Run(context.Background(), job.Graph, job.Prompt) {
		switch ev.Type {
		case core.EventToken:
			final = ev.Content
		case core.EventError:
			s.logger.Error("async function error",
				"system", job.SystemID, "error", ev.Content)
		}
	}

	if final != "" {
		s.logger.Info("async function completed",
			"system", job.SystemID, "output", truncate(final, 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
