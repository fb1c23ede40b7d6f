package engine

import (
	"fmt"

	"github.com/viant/cyclor/runtime/state"
	"github.com/viant/cyclor/service/messaging/memory"
)

// Dump returns a deep copy of the engine run state suitable for
// serialisation. Transient collaborators (gate pool, dispatch queue,
// progress handle) are excluded and reconstructed on Load.
func (e *Engine) Dump() *state.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone()
}

// Load restores a previously dumped snapshot. The gate pool is cleared and
// the dispatch queue recreated; a subsequent Start resumes only instances
// whose step index has not reached the step count. A snapshot incompatible
// with the engine's step registry yields a ResumeError.
func (e *Engine) Load(snapshot *state.Snapshot) error {
	if snapshot == nil {
		return &ResumeError{Reason: "snapshot was nil"}
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("cannot load state into a running engine")
	}
	e.mu.Unlock()

	replica := snapshot.Clone()
	replica.Normalize()
	if err := replica.Validate(len(e.stepNames)); err != nil {
		return &ResumeError{Reason: err.Error()}
	}
	if err := e.rehydrate(replica); err != nil {
		return &ResumeError{Reason: err.Error()}
	}

	e.mu.Lock()
	e.snap = replica
	e.withdrawn = make(map[int]int)
	e.fatal = nil
	e.termination = nil
	e.stopped = false
	e.mu.Unlock()

	e.gates.Reset()
	e.queue = memory.NewQueue[Job](memory.DefaultConfig())
	return nil
}

// rehydrate converts generically decoded step outputs back into their
// registered concrete types.
func (e *Engine) rehydrate(snapshot *state.Snapshot) error {
	if e.types == nil {
		return nil
	}
	for i, outputs := range snapshot.LoopPrevOut {
		for name, value := range outputs {
			if name == state.ExceptionKey {
				continue
			}
			typed, err := e.types.Rehydrate(name, value)
			if err != nil {
				return fmt.Errorf("loop %d: %w", i, err)
			}
			outputs[name] = typed
		}
	}
	return nil
}
