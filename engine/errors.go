package engine

import "fmt"

// TerminationError is a clean-stop signal, not a fault: it is raised by the
// termination policy when the step budget or the time budget runs out. The
// engine catches it, stops admitting further work and returns normally once
// in-flight steps drain.
type TerminationError struct {
	Reason string
}

// Error implements error.
func (e *TerminationError) Error() string {
	return e.Reason
}

// ResumeError is raised when Load receives a snapshot incompatible with the
// engine's step registry, e.g. recorded against a different step count.
type ResumeError struct {
	Reason string
}

// Error implements error.
func (e *ResumeError) Error() string {
	return fmt.Sprintf("cannot resume: %s", e.Reason)
}
