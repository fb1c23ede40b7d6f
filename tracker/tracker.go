// Package tracker defines the observability collaborator notified once at
// engine construction. The engine hands the tracker a reference to itself
// and never depends on what the tracker does with it.
package tracker

import "log"

// Tracker observes an engine from the outside.
type Tracker interface {
	// Track is invoked exactly once, at engine construction, with the engine
	// instance.
	Track(target interface{})
}

// Nop is a tracker that ignores the notification.
type Nop struct{}

// Track implements Tracker.
func (Nop) Track(interface{}) {}

// Log is a tracker that records the attachment via the standard logger,
// useful when diagnosing engine lifecycle in long-running services.
type Log struct {
	// Name labels the engine in the log line.
	Name string
}

// Track implements Tracker.
func (t Log) Track(target interface{}) {
	name := t.Name
	if name == "" {
		name = "engine"
	}
	log.Printf("tracker: attached to %s (%T)", name, target)
}
