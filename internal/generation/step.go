// Package generation runs expensive multi-step work in small increments so a
// host loop can drive it once per tick without stalling.
//
// A Step is one resumable unit of work. A Stage wraps a named Step sequence and
// tracks its fractional progress. A Pipeline drives an ordered list of Stages
// strictly one after another and aggregates their progress.
package generation

import (
	"context"
	"fmt"
)

// Status tags the outcome of one Advance call.
type Status int

const (
	// Suspended means the increment ran and more work remains.
	Suspended Status = iota
	// Completed means the underlying work is exhausted.
	Completed
)

func (s Status) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Step advances resumable work by one bounded increment.
//
// Implementations must keep every call short: the host calls Advance from its
// main loop and anything slow here freezes the host.
type Step interface {
	Advance(ctx context.Context) (Status, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc func(ctx context.Context) (Status, error)

// Advance implements Step.
func (f StepFunc) Advance(ctx context.Context) (Status, error) {
	return f(ctx)
}

// Tracker receives progress reports from the work running inside a Stage.
type Tracker interface {
	// SetProgress records the fraction of work done. Values are clamped to
	// [0,1] and decreases are ignored.
	SetProgress(p float64)
	Progress() float64
}

// ProcessFunc creates the increment sequence of a Stage. It is invoked once,
// on the first Advance, never at construction.
type ProcessFunc func(t Tracker) Step
