package loop

import (
	"context"
	"fmt"
	"strings"
)

// reserved holds method-style names that can never become steps; they are
// claimed by the engine checkpoint surface.
var reserved = map[string]bool{
	"load": true,
	"dump": true,
}

// StepFunc executes one named step for one loop instance. It receives the
// accumulated output of all previously executed steps of the same instance
// and returns an Emitter producing the values the engine merges under the
// step's name.
type StepFunc func(ctx context.Context, prev map[string]interface{}) (Emitter, error)

// Step pairs a step name with its handler.
type Step struct {
	Name    string
	Handler StepFunc
}

// Definition describes one loop type: an ordered, immutable-once-built
// sequence of named steps. Definitions compose base-to-derived; an override
// replaces the handler but keeps the first-declared position.
type Definition struct {
	name  string
	steps []Step
	index map[string]int
}

// Option customises a Definition at construction time.
type Option func(d *Definition)

// WithBase seeds the definition with all steps of base, preserving their
// declared order. Steps defined afterwards either append or override in
// place.
func WithBase(base *Definition) Option {
	return func(d *Definition) {
		if base == nil {
			return
		}
		for _, step := range base.steps {
			d.steps = append(d.steps, step)
			d.index[step.Name] = len(d.steps) - 1
		}
	}
}

// New creates a named loop definition.
func New(name string, options ...Option) *Definition {
	d := &Definition{
		name:  name,
		index: make(map[string]int),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Define registers a step handler under name. A name already present is an
// override: the handler is replaced and the step keeps its original
// position. Reserved names (load, dump), empty names and names with a
// private "_" prefix are rejected.
func (d *Definition) Define(name string, handler StepFunc) error {
	if name == "" {
		return fmt.Errorf("step name cannot be empty")
	}
	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("step %q uses a private name", name)
	}
	if reserved[name] {
		return fmt.Errorf("step %q uses a reserved name", name)
	}
	if handler == nil {
		return fmt.Errorf("step %q has no handler", name)
	}
	if at, ok := d.index[name]; ok {
		d.steps[at].Handler = handler
		return nil
	}
	d.steps = append(d.steps, Step{Name: name, Handler: handler})
	d.index[name] = len(d.steps) - 1
	return nil
}

// MustDefine is like Define but panics on error; intended for package-level
// definition wiring where a bad step name is a programming bug.
func (d *Definition) MustDefine(name string, handler StepFunc) *Definition {
	if err := d.Define(name, handler); err != nil {
		panic(err)
	}
	return d
}

// Name returns the loop type name.
func (d *Definition) Name() string {
	return d.name
}

// Steps returns the ordered step names. The result is a copy; repeated calls
// observe the same order regardless of overrides applied in between.
func (d *Definition) Steps() []string {
	out := make([]string, len(d.steps))
	for i, step := range d.steps {
		out[i] = step.Name
	}
	return out
}

// Len returns the number of steps.
func (d *Definition) Len() int {
	return len(d.steps)
}

// StepAt returns the step at position i.
func (d *Definition) StepAt(i int) (Step, error) {
	if i < 0 || i >= len(d.steps) {
		return Step{}, fmt.Errorf("step index %d out of range [0..%d)", i, len(d.steps))
	}
	return d.steps[i], nil
}

// Handler returns the handler registered under name, or nil when absent.
func (d *Definition) Handler(name string) StepFunc {
	if at, ok := d.index[name]; ok {
		return d.steps[at].Handler
	}
	return nil
}
