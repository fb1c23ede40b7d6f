// Package extension provides a run-time registry that lets the engine work
// with user-defined Go types for step outputs. Checkpoints serialise outputs
// as generic JSON; a registry entry keyed by step name lets a restored
// engine rehydrate those values back into their concrete types.
package extension

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/viant/x"
)

// Types registers the concrete output type per step name.
type Types struct {
	registry *x.Registry
}

// NewTypes creates an empty type registry.
func NewTypes(options ...x.RegistryOption) *Types {
	return &Types{registry: x.NewRegistry(options...)}
}

// Register associates step with the concrete type of value; value itself is
// only used as a type witness.
func (t *Types) Register(step string, value interface{}) *Types {
	rType := reflect.TypeOf(value)
	for rType != nil && rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	if rType == nil {
		return t
	}
	t.registry.Register(x.NewType(rType, x.WithName(step)))
	return t
}

// Lookup returns the registered type for step, or nil when absent.
func (t *Types) Lookup(step string) *x.Type {
	if t == nil || t.registry == nil {
		return nil
	}
	return t.registry.Lookup(step)
}

// Rehydrate converts a generic decoded value (typically map[string]interface{}
// produced by encoding/json) into the concrete type registered for step. A
// step without a registered type passes through unchanged.
func (t *Types) Rehydrate(step string, value interface{}) (interface{}, error) {
	xType := t.Lookup(step)
	if xType == nil || value == nil {
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode output of step %q: %w", step, err)
	}
	target := reflect.New(xType.Type)
	if err := json.Unmarshal(data, target.Interface()); err != nil {
		return nil, fmt.Errorf("failed to rehydrate output of step %q into %s: %w", step, xType.Type, err)
	}
	return target.Elem().Interface(), nil
}
