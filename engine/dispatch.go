package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/cyclor/internal/clock"
	"github.com/viant/cyclor/model/loop"
	"github.com/viant/cyclor/policy"
	"github.com/viant/cyclor/runtime/state"
	"github.com/viant/cyclor/tracing"
)

// dispatch drives one loop instance forward from job until the instance
// completes, is abandoned, or the engine stops. Successive steps of the same
// instance run inline in the consuming worker: a worker must never publish
// into the queue it drains, or a full buffer leaves no consumer and the run
// deadlocks. Recoverable errors are fully handled here; the returned error
// is informational only.
func (e *Engine) dispatch(ctx context.Context, job Job) error {
	for {
		next, again, err := e.dispatchStep(ctx, job)
		if !again {
			return err
		}
		job = next
	}
}

// dispatchStep executes one pending step: it acquires the step's gate, runs
// the handler against the instance's accumulated outputs, merges the emitted
// values, records a trace, advances the step index and re-evaluates the
// termination policy. When the instance has more work (next step, or a
// withdraw retry) it returns the follow-up job with again=true.
func (e *Engine) dispatchStep(ctx context.Context, job Job) (Job, bool, error) {
	e.mu.Lock()
	if e.stopped || e.fatal != nil {
		e.mu.Unlock()
		return Job{}, false, nil
	}
	idx := e.snap.StepIdx[job.Loop]
	if idx != job.Step || idx >= len(e.stepNames) {
		// Stale job left behind by a withdrawal or abandonment.
		e.mu.Unlock()
		return Job{}, false, nil
	}
	name := e.stepNames[idx]
	prev := e.snap.Outputs(job.Loop)
	e.mu.Unlock()

	step, err := e.def.StepAt(idx)
	if err != nil {
		e.fail(err)
		return Job{}, false, err
	}

	release, err := e.gates.Gate(name).Acquire(ctx)
	if err != nil {
		// Cancelled while waiting on the gate; the run is already stopping.
		e.stop(nil)
		return Job{}, false, nil
	}
	defer release()

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return Job{}, false, nil
	}
	e.mu.Unlock()

	stepCtx, span := tracing.StartSpan(ctx, fmt.Sprintf("step.exec %s", name), "INTERNAL")
	span.WithAttributes(map[string]string{
		"loop.instance": fmt.Sprintf("%d", job.Loop),
		"step.name":     name,
	})
	start := clock.Now()
	value, stepErr := executeStep(stepCtx, step, prev)
	end := clock.Now()
	tracing.EndSpan(span, stepErr)

	if stepErr != nil {
		return e.recover(ctx, job, stepErr)
	}

	e.mu.Lock()
	outputs := e.snap.LoopPrevOut[job.Loop]
	if outputs == nil {
		outputs = make(map[string]interface{})
		e.snap.LoopPrevOut[job.Loop] = outputs
	}
	outputs[name] = value
	e.snap.LoopTrace[job.Loop] = append(e.snap.LoopTrace[job.Loop],
		state.Trace{Start: start, End: end, StepIdx: idx})
	e.snap.StepIdx[job.Loop] = idx + 1
	done := idx+1 == len(e.stepNames)
	term := e.checkBudgetLocked()
	e.mu.Unlock()

	delta := stepExecuted
	if done {
		delta.CompletedLoops = 1
	}
	e.progressUpdate(delta)

	if term != nil {
		e.stop(term)
		return Job{}, false, nil
	}
	if done {
		// Capacity freed; wake the admission loop.
		e.cond.Broadcast()
		return Job{}, false, nil
	}
	return Job{Loop: job.Loop, Step: idx + 1}, true, nil
}

// executeStep invokes the handler and drains its emitter into the merged
// output value.
func executeStep(ctx context.Context, step loop.Step, prev map[string]interface{}) (interface{}, error) {
	emitter, err := step.Handler(ctx, prev)
	if err != nil {
		return nil, err
	}
	return loop.Drain(ctx, emitter)
}

// recover applies the loop type's error classification to a failed step.
func (e *Engine) recover(ctx context.Context, job Job, stepErr error) (Job, bool, error) {
	var term *TerminationError
	if errors.As(stepErr, &term) {
		e.stop(term)
		return Job{}, false, nil
	}
	if ctx.Err() != nil &&
		(errors.Is(stepErr, context.Canceled) || errors.Is(stepErr, context.DeadlineExceeded)) {
		// Cooperative cancellation is a clean stop, not a failure.
		e.stop(nil)
		return Job{}, false, nil
	}

	switch e.policy.Classify(stepErr) {
	case policy.ClassSkip:
		e.mu.Lock()
		e.snap.Abandon(job.Loop, len(e.stepNames))
		e.mu.Unlock()
		e.cond.Broadcast()
		e.progressUpdate(loopSkipped)
		return Job{}, false, nil
	case policy.ClassWithdraw:
		if e.withdraw(job.Loop) {
			return Job{Loop: job.Loop, Step: 0}, true, nil
		}
		return Job{}, false, nil
	}
	e.fail(stepErr)
	return Job{}, false, stepErr
}

// withdraw rolls loop instance i back and reports whether it should run
// again: true in retry mode while the withdraw limit lasts, false once the
// instance has been permanently abandoned with the exception sentinel.
func (e *Engine) withdraw(i int) bool {
	e.mu.Lock()
	retry := e.policy.Mode() == policy.WithdrawModeRetry && e.withdrawn[i] < e.policy.Limit()
	if retry {
		e.withdrawn[i]++
		e.snap.Reset(i)
	} else {
		e.snap.Abandon(i, len(e.stepNames))
	}
	e.mu.Unlock()

	e.progressUpdate(loopWithdrawn)
	if !retry {
		e.cond.Broadcast()
	}
	return retry
}

// WithdrawLoop rolls loop instance i back per the configured withdraw mode:
// in retry mode the instance restarts from its first step until the withdraw
// limit is spent, after which (or in discard mode straight away) it is
// permanently abandoned with the exception sentinel.
func (e *Engine) WithdrawLoop(ctx context.Context, i int) {
	if e.withdraw(i) {
		e.enqueue(ctx, Job{Loop: i, Step: 0})
	}
}
