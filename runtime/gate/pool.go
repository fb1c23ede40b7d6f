// Package gate provides named concurrency limiters bounding simultaneous
// executions of a given step name across all loop instances.
package gate

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// RecordStep is the step name that is always serialized: whatever capacity
// the configuration declares, its gate admits one execution at a time so
// durable recording never interleaves.
const RecordStep = "record"

// Unbounded marks a gate without a concurrency limit.
const Unbounded = 0

// Gate limits concurrent executions of one step name.
type Gate struct {
	name     string
	capacity int
	sem      *semaphore.Weighted
}

// Name returns the step name the gate guards.
func (g *Gate) Name() string {
	return g.name
}

// Capacity returns the configured limit; Unbounded when the gate does not
// limit concurrency.
func (g *Gate) Capacity() int {
	return g.capacity
}

// Acquire waits for an open slot and returns a release func. The release
// func must be invoked exactly once on every exit path; it is safe to call
// via defer. Acquire honours context cancellation while waiting.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	if g.sem == nil {
		return func() {}, nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.sem.Release(1)
		})
	}, nil
}

// Pool lazily creates and caches gates per step name. Limits are consulted
// once, when a gate is first created for the name.
type Pool struct {
	mu     sync.Mutex
	limits map[string]int
	gates  map[string]*Gate
}

// NewPool creates a pool with the supplied per-step capacity overrides; a
// name not present in limits gets an unbounded gate.
func NewPool(limits map[string]int) *Pool {
	return &Pool{
		limits: limits,
		gates:  make(map[string]*Gate),
	}
}

// Gate returns the gate for name, creating it on first use. Repeated calls
// with the same name return the identical gate.
func (p *Pool) Gate(name string) *Gate {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gates[name]; ok {
		return g
	}
	capacity := p.limits[name]
	if name == RecordStep {
		capacity = 1
	}
	g := &Gate{name: name, capacity: capacity}
	if capacity > 0 {
		g.sem = semaphore.NewWeighted(int64(capacity))
	}
	p.gates[name] = g
	return g
}

// Len returns the number of gates created so far.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.gates)
}

// Reset discards all cached gates; limits survive. Used when restoring an
// engine from a checkpoint, where in-flight slot state is meaningless.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gates = make(map[string]*Gate)
}
