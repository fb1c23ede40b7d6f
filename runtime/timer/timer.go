// Package timer supplies the wall-clock budget collaborator consumed by the
// engine's termination policy. The engine only depends on the Timer
// interface; tests substitute their own implementation.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/viant/cyclor/internal/clock"
)

// Timer reports whether a wall-clock budget has been started and exhausted.
type Timer interface {
	// Started reports whether the budget clock is running.
	Started() bool

	// IsTimeout reports whether the budget has been exhausted.
	IsTimeout() bool

	// RemainingTime renders the remaining budget as H:MM:SS.
	RemainingTime() string
}

// Wallclock is the default Timer implementation: a fixed duration budget
// measured from Start.
type Wallclock struct {
	mu        sync.Mutex
	budget    time.Duration
	startedAt time.Time
	started   bool
}

// New creates a wall-clock timer with the given budget. The clock does not
// run until Start is called.
func New(budget time.Duration) *Wallclock {
	return &Wallclock{budget: budget}
}

// Start begins measuring the budget; repeated calls keep the original start
// time.
func (t *Wallclock) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	t.startedAt = clock.Now()
}

// Started implements Timer.
func (t *Wallclock) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// Remaining returns the unexpired portion of the budget; zero or negative
// once exhausted, the full budget before Start.
func (t *Wallclock) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return t.budget
	}
	return t.budget - clock.Now().Sub(t.startedAt)
}

// IsTimeout implements Timer.
func (t *Wallclock) IsTimeout() bool {
	return t.Started() && t.Remaining() <= 0
}

// RemainingTime implements Timer.
func (t *Wallclock) RemainingTime() string {
	remaining := t.Remaining()
	if remaining < 0 {
		remaining = 0
	}
	remaining = remaining.Round(time.Second)
	hours := int(remaining / time.Hour)
	minutes := int(remaining/time.Minute) % 60
	seconds := int(remaining/time.Second) % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}
