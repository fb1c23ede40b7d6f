// Package engine implements the loop driver: it admits loop instances,
// dispatches their pending steps through named concurrency gates, records
// progress into a serialisable snapshot and enforces the termination policy
// and the error classification declared by the loop type.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/cyclor/extension"
	"github.com/viant/cyclor/model/loop"
	"github.com/viant/cyclor/policy"
	"github.com/viant/cyclor/progress"
	"github.com/viant/cyclor/runtime/gate"
	"github.com/viant/cyclor/runtime/state"
	"github.com/viant/cyclor/runtime/timer"
	"github.com/viant/cyclor/service/messaging"
	"github.com/viant/cyclor/service/messaging/memory"
	"github.com/viant/cyclor/tracing"
	"github.com/viant/cyclor/tracker"
)

// Job is one unit of dispatch: a loop instance and the step index it is due
// to execute.
type Job struct {
	Loop int `json:"loop"`
	Step int `json:"step"`
}

// Engine drives any number of independent loop instances through the fixed
// step sequence of one loop definition. It exclusively owns the run state
// and the gate pool; collaborators (timer, tracker, queue, checkpoint DAO)
// are injected.
type Engine struct {
	id        string
	def       *loop.Definition
	stepNames []string
	config    Config

	mu          sync.Mutex
	cond        *sync.Cond
	snap        *state.Snapshot
	withdrawn   map[int]int
	stopped     bool
	running     bool
	fatal       error
	termination *TerminationError

	gates      *gate.Pool
	gateLimits map[string]int
	queue      messaging.Queue[Job]
	policy     *policy.Policy
	timer      timer.Timer
	types      *extension.Types
	trackers   []tracker.Tracker

	inflight sync.WaitGroup

	pbarMu      sync.Mutex
	pbar        *progress.Printer
	progressOut io.Writer
}

// New creates an engine for the supplied loop definition. Registered
// trackers are notified with the engine reference before New returns.
func New(def *loop.Definition, options ...Option) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("loop definition is required")
	}
	if def.Len() == 0 {
		return nil, fmt.Errorf("loop definition %q has no steps", def.Name())
	}
	e := &Engine{
		id:        uuid.New().String(),
		def:       def,
		stepNames: def.Steps(),
		config:    DefaultConfig(),
		snap:      state.New(),
		withdrawn: make(map[int]int),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.config.Workers <= 0 {
		e.config.Workers = DefaultConfig().Workers
	}
	e.cond = sync.NewCond(&e.mu)
	e.gates = gate.NewPool(e.gateLimits)
	if e.queue == nil {
		e.queue = memory.NewQueue[Job](memory.DefaultConfig())
	}
	for _, t := range e.trackers {
		t.Track(e)
	}
	return e, nil
}

// ID returns the engine run identifier.
func (e *Engine) ID() string {
	return e.id
}

// Definition returns the loop definition the engine drives.
func (e *Engine) Definition() *loop.Definition {
	return e.def
}

// Steps returns the ordered step names.
func (e *Engine) Steps() []string {
	return append([]string(nil), e.stepNames...)
}

// Gates exposes the gate pool, mainly for inspection in tests.
func (e *Engine) Gates() *gate.Pool {
	return e.gates
}

// UnfinishedCount returns the number of loop indices in [0, n) that have not
// executed all steps yet.
func (e *Engine) UnfinishedCount(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.UnfinishedCount(n, len(e.stepNames))
}

// Termination returns the clean-stop signal that ended the previous run, or
// nil when the run completed or failed.
func (e *Engine) Termination() *TerminationError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.termination
}

// Start runs the engine until all admitted loop instances complete, the
// termination policy fires, the context is cancelled, or a fatal error
// surfaces. Only fatal errors are returned; budget and timeout stops return
// nil after in-flight steps drain.
func (e *Engine) Start(ctx context.Context) (err error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	e.running = true
	e.stopped = false
	e.fatal = nil
	e.termination = nil
	queue := e.queue
	e.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "engine.start "+e.def.Name(), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"engine.id": e.id, "loop.type": e.def.Name()})

	// Workers consume on their own context so that queued jobs still drain
	// (as no-ops) after the caller's context flips the engine into stop mode.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var workerWg sync.WaitGroup
	for i := 0; i < e.config.Workers; i++ {
		workerWg.Add(1)
		go e.runWorker(workerCtx, ctx, i, &workerWg, queue)
	}

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.stop(nil)
		case <-watchDone:
		}
	}()

	// Resume instances left unfinished by a loaded checkpoint before
	// admitting new ones.
	e.mu.Lock()
	var pending []Job
	for i := 0; i < e.snap.LoopIdx; i++ {
		if idx := e.snap.StepIdx[i]; idx < len(e.stepNames) {
			pending = append(pending, Job{Loop: i, Step: idx})
		}
	}
	e.mu.Unlock()
	for _, job := range pending {
		e.enqueue(ctx, job)
	}

	e.admit(ctx)

	e.inflight.Wait()
	close(watchDone)
	cancelWorkers()
	workerWg.Wait()

	e.mu.Lock()
	err = e.fatal
	e.running = false
	e.mu.Unlock()
	return err
}

// admit creates loop instances until the loop budget is spent, the engine
// stops, or (without a budget) indefinitely. Admission waits whenever the
// number of unfinished instances reaches the configured cap.
func (e *Engine) admit(ctx context.Context) {
	for {
		e.mu.Lock()
		if e.stopped {
			e.mu.Unlock()
			return
		}
		if e.snap.LoopN != nil && *e.snap.LoopN <= 0 {
			e.mu.Unlock()
			return
		}
		if e.config.LoopCap > 0 &&
			e.snap.UnfinishedCount(e.snap.LoopIdx, len(e.stepNames)) >= e.config.LoopCap {
			e.cond.Wait()
			e.mu.Unlock()
			continue
		}
		i := e.snap.Admit()
		if e.snap.LoopN != nil {
			n := *e.snap.LoopN - 1
			e.snap.LoopN = &n
		}
		e.mu.Unlock()

		e.progressUpdate(loopAdmitted)
		e.enqueue(ctx, Job{Loop: i, Step: 0})
	}
}

// runWorker drains the dispatch queue. consumeCtx governs queue blocking and
// is cancelled only after all in-flight jobs drained; execCtx is the
// caller's run context handed to step handlers.
func (e *Engine) runWorker(consumeCtx, execCtx context.Context, id int, wg *sync.WaitGroup, queue messaging.Queue[Job]) {
	defer wg.Done()
	for {
		msg, err := queue.Consume(consumeCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		job := *msg.T()
		if dErr := e.dispatch(execCtx, job); dErr != nil {
			log.Printf("worker %d: loop %d step %d: %v", id, job.Loop, job.Step, dErr)
		}
		_ = msg.Ack()
		e.inflight.Done()
	}
}

// enqueue schedules a job and accounts it as in-flight until a worker
// finishes processing it.
func (e *Engine) enqueue(ctx context.Context, job Job) {
	e.inflight.Add(1)
	if err := e.queue.Publish(ctx, &job); err != nil {
		e.inflight.Done()
		e.fail(fmt.Errorf("failed to enqueue loop %d step %d: %w", job.Loop, job.Step, err))
	}
}

// checkBudgetLocked evaluates the termination policy after a step
// completion: first the step budget, then the wall-clock budget. The caller
// must hold e.mu.
func (e *Engine) checkBudgetLocked() *TerminationError {
	if e.snap.StepN != nil {
		n := *e.snap.StepN - 1
		e.snap.StepN = &n
		if n < 0 {
			return &TerminationError{Reason: "step budget exhausted"}
		}
	}
	if e.timer != nil && e.timer.Started() && e.timer.IsTimeout() {
		return &TerminationError{
			Reason: fmt.Sprintf("time budget exhausted, remaining=%s", e.timer.RemainingTime()),
		}
	}
	return nil
}

// stop flips the engine into drain mode: no further admissions or
// dispatches; in-flight steps finish. A non-nil term records the clean-stop
// reason.
func (e *Engine) stop(term *TerminationError) {
	e.mu.Lock()
	e.stopped = true
	if term != nil && e.termination == nil {
		e.termination = term
	}
	e.mu.Unlock()
	e.cond.Broadcast()
}

// fail records the first fatal error and stops the engine.
func (e *Engine) fail(err error) {
	e.mu.Lock()
	if e.fatal == nil {
		e.fatal = err
	}
	e.stopped = true
	e.mu.Unlock()
	e.cond.Broadcast()
}
