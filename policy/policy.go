// Package policy classifies step errors into the engine's recovery classes.
// A loop type declares which error kinds abandon an instance (skip) and
// which roll it back (withdraw); everything else is fatal. Matching uses
// errors.Is against caller-supplied sentinel errors, so wrapped errors
// classify correctly.
package policy

import "errors"

// Class is the recovery decision for a step error.
type Class int

const (
	// ClassFatal propagates the error and aborts the run.
	ClassFatal Class = iota

	// ClassSkip abandons the failing loop instance and continues with the
	// others.
	ClassSkip

	// ClassWithdraw rolls the failing loop instance back per the configured
	// withdraw mode.
	ClassWithdraw
)

// WithdrawMode selects what a withdrawal does with the instance.
type WithdrawMode string

const (
	// WithdrawModeRetry resets the instance to its first step and lets the
	// engine dispatch it again, up to WithdrawLimit rollbacks.
	WithdrawModeRetry WithdrawMode = "retry"

	// WithdrawModeDiscard abandons the instance permanently, marking it with
	// the exception sentinel like a skip.
	WithdrawModeDiscard WithdrawMode = "discard"
)

// DefaultWithdrawLimit bounds rollbacks per instance in retry mode.
const DefaultWithdrawLimit = 1

// Policy holds the per-loop-type error classification. The zero value (and
// a nil *Policy) treats every error as fatal.
type Policy struct {
	// SkipErrors lists sentinel errors whose occurrence abandons the current
	// loop instance.
	SkipErrors []error

	// WithdrawErrors lists sentinel errors whose occurrence withdraws the
	// current loop instance. The two sets must be disjoint; SkipErrors wins
	// when both match.
	WithdrawErrors []error

	// WithdrawMode selects retry or permanent discard; empty defaults to
	// retry.
	WithdrawMode WithdrawMode

	// WithdrawLimit caps rollbacks per instance in retry mode; zero defaults
	// to DefaultWithdrawLimit. Once exceeded the instance is discarded.
	WithdrawLimit int
}

// Classify maps err to its recovery class.
func (p *Policy) Classify(err error) Class {
	if p == nil || err == nil {
		return ClassFatal
	}
	for _, kind := range p.SkipErrors {
		if errors.Is(err, kind) {
			return ClassSkip
		}
	}
	for _, kind := range p.WithdrawErrors {
		if errors.Is(err, kind) {
			return ClassWithdraw
		}
	}
	return ClassFatal
}

// Mode returns the effective withdraw mode.
func (p *Policy) Mode() WithdrawMode {
	if p == nil || p.WithdrawMode == "" {
		return WithdrawModeRetry
	}
	return p.WithdrawMode
}

// Limit returns the effective withdraw limit.
func (p *Policy) Limit() int {
	if p == nil || p.WithdrawLimit <= 0 {
		return DefaultWithdrawLimit
	}
	return p.WithdrawLimit
}
