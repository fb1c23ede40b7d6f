package loop

import "context"

// Emitter yields the values produced by a single step execution. The
// sequence is finite and non-restartable: once Next reports ok=false the
// emitter is exhausted. An error from Next aborts the step and is classified
// like any other step error.
type Emitter interface {
	Next(ctx context.Context) (value interface{}, ok bool, err error)
}

type sliceEmitter struct {
	values []interface{}
	at     int
}

func (e *sliceEmitter) Next(ctx context.Context) (interface{}, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if e.at >= len(e.values) {
		return nil, false, nil
	}
	value := e.values[e.at]
	e.at++
	return value, true, nil
}

// Emit returns an emitter over the supplied values.
func Emit(values ...interface{}) Emitter {
	return &sliceEmitter{values: values}
}

type funcEmitter struct {
	next func(ctx context.Context) (interface{}, bool, error)
}

func (e *funcEmitter) Next(ctx context.Context) (interface{}, bool, error) {
	return e.next(ctx)
}

// EmitFunc adapts a pull function into an Emitter for steps that produce
// values lazily.
func EmitFunc(next func(ctx context.Context) (interface{}, bool, error)) Emitter {
	return &funcEmitter{next: next}
}

// Drain consumes the emitter and returns the merged value stored under the
// step's name: nil when nothing was emitted, the value itself for a single
// emission, and a slice preserving emission order otherwise.
func Drain(ctx context.Context, emitter Emitter) (interface{}, error) {
	if emitter == nil {
		return nil, nil
	}
	var values []interface{}
	for {
		value, ok, err := emitter.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		values = append(values, value)
	}
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return values[0], nil
	}
	return values, nil
}
