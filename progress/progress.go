// Package progress provides a lightweight printer that keeps aggregated
// execution counters (loops admitted, steps executed, skipped, withdrawn,
// ...) for a single engine run. The printer is handed out by the engine as a
// lazily constructed, cached handle; closing it detaches it so the next
// request builds a fresh one.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/viant/cyclor/internal/clock"
)

// Delta represents an incremental counter change emitted by the engine. The
// fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Loops          int
	CompletedLoops int
	SkippedLoops   int
	WithdrawnLoops int
	Steps          int
}

// Snapshot is a value-copy of the printer counters suitable for read-only
// inspection.
type Snapshot struct {
	StartedAt      time.Time
	Loops          int
	CompletedLoops int
	SkippedLoops   int
	WithdrawnLoops int
	Steps          int
}

// Printer keeps aggregated loop/step counters for one engine run and can
// render them to an io.Writer. It is safe for concurrent use.
type Printer struct {
	mu        sync.Mutex
	out       io.Writer
	startedAt time.Time
	closed    bool

	loops          int
	completedLoops int
	skippedLoops   int
	withdrawnLoops int
	steps          int

	onChange func(Snapshot)
}

// NewPrinter creates a printer rendering to out; a nil out disables
// rendering while counters still accumulate.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, startedAt: clock.Now()}
}

// Update applies the supplied delta. If an onChange callback has been
// registered it is invoked with a copy of the updated counters outside the
// critical section so that the callback can perform slow operations without
// blocking engine internals.
func (p *Printer) Update(d Delta) {
	if p == nil {
		return
	}

	p.mu.Lock()
	p.loops += d.Loops
	p.completedLoops += d.CompletedLoops
	p.skippedLoops += d.SkippedLoops
	p.withdrawnLoops += d.WithdrawnLoops
	p.steps += d.Steps
	snapshot := p.snapshot()
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the current counters.
func (p *Printer) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Printer) snapshot() Snapshot {
	return Snapshot{
		StartedAt:      p.startedAt,
		Loops:          p.loops,
		CompletedLoops: p.completedLoops,
		SkippedLoops:   p.skippedLoops,
		WithdrawnLoops: p.withdrawnLoops,
		Steps:          p.steps,
	}
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables the callback. Only one callback can be active; subsequent calls
// overwrite the previous value.
func (p *Printer) OnChange(cb func(Snapshot)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

// Render writes a one-line counter summary to the printer's writer.
func (p *Printer) Render() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	out := p.out
	snapshot := p.snapshot()
	closed := p.closed
	p.mu.Unlock()

	if out == nil || closed {
		return nil
	}
	_, err := fmt.Fprintf(out, "loops=%d done=%d skipped=%d withdrawn=%d steps=%d elapsed=%s\n",
		snapshot.Loops, snapshot.CompletedLoops, snapshot.SkippedLoops, snapshot.WithdrawnLoops,
		snapshot.Steps, clock.Now().Sub(snapshot.StartedAt).Round(time.Second))
	return err
}

// Close stops rendering; counters remain readable. Close is idempotent.
func (p *Printer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	p.closed = true
	p.onChange = nil
	p.mu.Unlock()
	return nil
}
