package engine

import (
	"io"

	"github.com/viant/cyclor/extension"
	"github.com/viant/cyclor/policy"
	"github.com/viant/cyclor/runtime/timer"
	"github.com/viant/cyclor/service/messaging"
	"github.com/viant/cyclor/tracker"
)

// Config represents engine configuration.
type Config struct {
	// Workers is the number of workers draining the dispatch queue.
	Workers int `json:"workers" yaml:"workers"`

	// LoopCap bounds the number of concurrently unfinished loop instances;
	// zero means unbounded.
	LoopCap int `json:"loopCap" yaml:"loopCap"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 5,
		LoopCap: 5,
	}
}

// Option customises an Engine at construction time.
type Option func(e *Engine)

// WithConfig replaces the whole engine configuration.
func WithConfig(config Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithWorkers sets the dispatch worker count.
func WithWorkers(count int) Option {
	return func(e *Engine) {
		e.config.Workers = count
	}
}

// WithLoopCap bounds concurrently unfinished loop instances; zero removes
// the bound.
func WithLoopCap(cap int) Option {
	return func(e *Engine) {
		e.config.LoopCap = cap
	}
}

// WithGateLimits sets the per-step concurrency overrides consulted when a
// gate is first created for a step name.
func WithGateLimits(limits map[string]int) Option {
	return func(e *Engine) {
		e.gateLimits = limits
	}
}

// WithLoopN caps the number of loop instances the engine admits.
func WithLoopN(n int) Option {
	return func(e *Engine) {
		e.snap.LoopN = &n
	}
}

// WithStepN caps the total number of step executions.
func WithStepN(n int) Option {
	return func(e *Engine) {
		e.snap.StepN = &n
	}
}

// WithPolicy sets the error classification policy; without one every step
// error is fatal.
func WithPolicy(p *policy.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithTimer injects the wall-clock budget collaborator.
func WithTimer(t timer.Timer) Option {
	return func(e *Engine) {
		e.timer = t
	}
}

// WithQueue injects a custom dispatch queue; when absent an in-memory queue
// is created.
func WithQueue(queue messaging.Queue[Job]) Option {
	return func(e *Engine) {
		e.queue = queue
	}
}

// WithTracker registers trackers notified with the engine reference at
// construction.
func WithTracker(trackers ...tracker.Tracker) Option {
	return func(e *Engine) {
		e.trackers = append(e.trackers, trackers...)
	}
}

// WithProgressWriter sets the writer progress printers render to.
func WithProgressWriter(out io.Writer) Option {
	return func(e *Engine) {
		e.progressOut = out
	}
}

// WithTypes registers concrete step output types used to rehydrate
// checkpoints on Load.
func WithTypes(types *extension.Types) Option {
	return func(e *Engine) {
		e.types = types
	}
}
