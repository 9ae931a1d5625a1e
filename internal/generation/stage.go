package generation

import (
	"context"
	"errors"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
)

// Stage is a named, forward-only piece of generation work.
type Stage struct {
	name     string
	process  ProcessFunc
	step     Step
	progress float64
	finished bool
	err      error
}

// StageFactory builds a fresh Stage. A new run needs new instances.
type StageFactory func() *Stage

// NewStage creates a stage. Constructing a stage has no side effects.
func NewStage(name string, process ProcessFunc) *Stage {
	return &Stage{name: name, process: process}
}

// Name is the human-readable stage name used for progress display and logs.
func (s *Stage) Name() string { return s.name }

// Progress reports the fraction of work done in [0,1].
func (s *Stage) Progress() float64 { return s.progress }

// Finished reports whether the increment sequence is exhausted.
func (s *Stage) Finished() bool { return s.finished }

// Err returns the failure that stopped the stage, if any.
func (s *Stage) Err() error { return s.err }

// Advance runs one increment. After the stage finished it is a no-op that
// reports Completed. After a failure it returns the same error without running
// any more work.
func (s *Stage) Advance(ctx context.Context) (Status, error) {
	if s.finished {
		return Completed, nil
	}
	if s.err != nil {
		return Suspended, s.err
	}
	if err := ctx.Err(); err != nil {
		return Suspended, err
	}

	if s.step == nil {
		if s.process == nil {
			return Suspended, s.fail(errors.New("stage has no process"))
		}
		s.step = s.process(stageTracker{s})
		if s.step == nil {
			return Suspended, s.fail(errors.New("process returned no step"))
		}
	}

	status, err := s.step.Advance(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return Suspended, err
		}
		return Suspended, s.fail(err)
	}
	if status == Completed {
		s.finished = true
		s.progress = 1
		s.step = nil
	}
	return status, nil
}

// Reset always fails: stages cannot be rewound.
func (s *Stage) Reset() error {
	return merrors.UnsupportedOperation("reset").WithContext("stage", s.name)
}

func (s *Stage) fail(cause error) error {
	s.err = merrors.StageFailure(s.name, cause)
	return s.err
}

func (s *Stage) setProgress(p float64) {
	if s.finished {
		return
	}
	switch {
	case p != p: // NaN
		return
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	if p > s.progress {
		s.progress = p
	}
}

type stageTracker struct{ s *Stage }

func (t stageTracker) SetProgress(p float64) { t.s.setProgress(p) }
func (t stageTracker) Progress() float64     { return t.s.progress }
