package state

import (
	"fmt"
	"time"
)

const (
	// ExceptionKey is the reserved output key marking an abandoned loop
	// instance.
	ExceptionKey = "_EXCEPTION"

	// ExceptionSentinel is the value stored under ExceptionKey.
	ExceptionSentinel = -1
)

// Trace records one step execution of one loop instance.
type Trace struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	StepIdx int       `json:"step_idx"`
}

// Snapshot is the fully serialisable progress record of an engine run. It
// deliberately excludes transient collaborators (gate pool, job queue,
// progress handle) which are reconstructed on load.
type Snapshot struct {
	// LoopIdx counts loop instances created so far.
	LoopIdx int `json:"loop_idx"`

	// StepIdx maps a loop instance to the index of its next pending step;
	// an instance is complete when the value equals the step count.
	StepIdx map[int]int `json:"step_idx"`

	// LoopPrevOut accumulates per-instance step outputs keyed by step name.
	LoopPrevOut map[int]map[string]interface{} `json:"loop_prev_out"`

	// LoopTrace holds the execution history per loop instance.
	LoopTrace map[int][]Trace `json:"loop_trace"`

	// LoopN and StepN are the remaining loop-instance and step-execution
	// budgets; nil means unlimited.
	LoopN *int `json:"loop_n"`
	StepN *int `json:"step_n"`
}

// New returns an empty snapshot with all maps initialised.
func New() *Snapshot {
	return &Snapshot{
		StepIdx:     make(map[int]int),
		LoopPrevOut: make(map[int]map[string]interface{}),
		LoopTrace:   make(map[int][]Trace),
	}
}

// UnfinishedCount returns how many loop indices in [0, n) have not yet
// reached stepCount.
func (s *Snapshot) UnfinishedCount(n, stepCount int) int {
	count := 0
	for i := 0; i < n; i++ {
		if s.StepIdx[i] < stepCount {
			count++
		}
	}
	return count
}

// Admit registers a fresh loop instance and returns its index.
func (s *Snapshot) Admit() int {
	i := s.LoopIdx
	s.LoopIdx++
	s.StepIdx[i] = 0
	s.LoopPrevOut[i] = make(map[string]interface{})
	s.LoopTrace[i] = nil
	return i
}

// Abandon marks instance i as skipped: the exception sentinel is written to
// its output map and the instance is forced complete.
func (s *Snapshot) Abandon(i, stepCount int) {
	outputs := s.LoopPrevOut[i]
	if outputs == nil {
		outputs = make(map[string]interface{})
		s.LoopPrevOut[i] = outputs
	}
	outputs[ExceptionKey] = ExceptionSentinel
	s.StepIdx[i] = stepCount
}

// Reset rolls instance i back to its first step, discarding outputs and
// trace.
func (s *Snapshot) Reset(i int) {
	s.StepIdx[i] = 0
	s.LoopPrevOut[i] = make(map[string]interface{})
	s.LoopTrace[i] = nil
}

// Outputs returns a shallow copy of instance i's accumulated outputs; the
// copy is what step handlers receive so that a handler can never mutate
// engine state behind the engine's back.
func (s *Snapshot) Outputs(i int) map[string]interface{} {
	src := s.LoopPrevOut[i]
	out := make(map[string]interface{}, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the snapshot; output values themselves are
// shared as they are treated as immutable once recorded.
func (s *Snapshot) Clone() *Snapshot {
	out := New()
	out.LoopIdx = s.LoopIdx
	for k, v := range s.StepIdx {
		out.StepIdx[k] = v
	}
	for k, outputs := range s.LoopPrevOut {
		replica := make(map[string]interface{}, len(outputs))
		for name, value := range outputs {
			replica[name] = value
		}
		out.LoopPrevOut[k] = replica
	}
	for k, traces := range s.LoopTrace {
		out.LoopTrace[k] = append([]Trace(nil), traces...)
	}
	if s.LoopN != nil {
		n := *s.LoopN
		out.LoopN = &n
	}
	if s.StepN != nil {
		n := *s.StepN
		out.StepN = &n
	}
	return out
}

// Validate checks that the snapshot is compatible with a loop type of
// stepCount steps.
func (s *Snapshot) Validate(stepCount int) error {
	if s == nil {
		return fmt.Errorf("snapshot was nil")
	}
	if s.LoopIdx < 0 {
		return fmt.Errorf("loop_idx %d was negative", s.LoopIdx)
	}
	for i, idx := range s.StepIdx {
		if i < 0 || i >= s.LoopIdx {
			return fmt.Errorf("step_idx references unknown loop instance %d", i)
		}
		if idx < 0 || idx > stepCount {
			return fmt.Errorf("step_idx[%d]=%d out of range [0..%d]", i, idx, stepCount)
		}
	}
	return nil
}

// Normalize ensures all maps are non-nil after JSON decoding.
func (s *Snapshot) Normalize() {
	if s.StepIdx == nil {
		s.StepIdx = make(map[int]int)
	}
	if s.LoopPrevOut == nil {
		s.LoopPrevOut = make(map[int]map[string]interface{})
	}
	if s.LoopTrace == nil {
		s.LoopTrace = make(map[int][]Trace)
	}
}
