package engine

import (
	"github.com/viant/cyclor/progress"
	"github.com/viant/cyclor/runtime/state"
)

var (
	loopAdmitted  = progress.Delta{Loops: 1}
	loopSkipped   = progress.Delta{SkippedLoops: 1}
	loopWithdrawn = progress.Delta{WithdrawnLoops: 1}
	stepExecuted  = progress.Delta{Steps: 1}
)

// Progress returns the cached progress printer, constructing it on first
// access and seeding it from the current run state.
func (e *Engine) Progress() *progress.Printer {
	e.pbarMu.Lock()
	defer e.pbarMu.Unlock()
	if e.pbar == nil {
		e.pbar = progress.NewPrinter(e.progressOut)
		e.pbar.Update(e.progressSeed())
	}
	return e.pbar
}

// ClosePrinter releases the cached progress handle; the next Progress call
// creates a fresh one.
func (e *Engine) ClosePrinter() {
	e.pbarMu.Lock()
	defer e.pbarMu.Unlock()
	if e.pbar != nil {
		_ = e.pbar.Close()
		e.pbar = nil
	}
}

// progressUpdate forwards a delta to the cached printer, if any.
func (e *Engine) progressUpdate(d progress.Delta) {
	e.pbarMu.Lock()
	p := e.pbar
	e.pbarMu.Unlock()
	if p == nil {
		return
	}
	p.Update(d)
	_ = p.Render()
}

// progressSeed derives printer counters from the snapshot so that a printer
// created mid-run (or after a checkpoint load) starts from the truth.
func (e *Engine) progressSeed() progress.Delta {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := progress.Delta{Loops: e.snap.LoopIdx}
	for i := 0; i < e.snap.LoopIdx; i++ {
		if e.snap.StepIdx[i] >= len(e.stepNames) {
			if _, skipped := e.snap.LoopPrevOut[i][state.ExceptionKey]; skipped {
				d.SkippedLoops++
			} else {
				d.CompletedLoops++
			}
		}
		d.Steps += len(e.snap.LoopTrace[i])
	}
	return d
}
