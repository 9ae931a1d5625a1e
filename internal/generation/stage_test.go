package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
)

func countingStage(name string, n int, calls *int) *Stage {
	return NewStage(name, func(t Tracker) Step {
		return Each(t, n, func(context.Context, int) error {
			if calls != nil {
				*calls++
			}
			return nil
		})
	})
}

func TestStageProcessIsLazy(t *testing.T) {
	invoked := false
	s := NewStage("lazy", func(t Tracker) Step {
		invoked = true
		return Once(func(context.Context) error { return nil })
	})
	assert.False(t, invoked)
	assert.Equal(t, "lazy", s.Name())

	status, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, invoked)
	assert.Equal(t, Completed, status)
	assert.True(t, s.Finished())
	assert.InDelta(t, 1.0, s.Progress(), 0)
}

func TestStageAdvanceAfterFinishIsNoop(t *testing.T) {
	calls := 0
	s := countingStage("count", 2, &calls)
	ctx := context.Background()
	for range 2 {
		_, err := s.Advance(ctx)
		require.NoError(t, err)
	}
	require.True(t, s.Finished())

	for range 3 {
		status, err := s.Advance(ctx)
		require.NoError(t, err)
		assert.Equal(t, Completed, status)
	}
	assert.Equal(t, 2, calls)
	assert.InDelta(t, 1.0, s.Progress(), 0)
}

func TestStageProgressClampedAndMonotonic(t *testing.T) {
	values := []float64{0.5, 0.2, 1.7, -1}
	i := 0
	var seen []float64
	s := NewStage("clamp", func(tr Tracker) Step {
		return StepFunc(func(context.Context) (Status, error) {
			tr.SetProgress(values[i])
			i++
			seen = append(seen, tr.Progress())
			if i == len(values) {
				return Completed, nil
			}
			return Suspended, nil
		})
	})
	for !s.Finished() {
		_, err := s.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, []float64{0.5, 0.5, 1, 1}, seen)
}

func TestStageResetUnsupported(t *testing.T) {
	s := countingStage("x", 1, nil)
	err := s.Reset()
	require.Error(t, err)
	assert.ErrorIs(t, err, merrors.ErrUnsupportedOperation)

	_, err = s.Advance(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Reset(), merrors.ErrUnsupportedOperation)
}

func TestStageFailureIsSticky(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	s := NewStage("fails", func(Tracker) Step {
		return StepFunc(func(context.Context) (Status, error) {
			calls++
			return Suspended, boom
		})
	})

	_, err := s.Advance(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, merrors.ErrStageFailure)
	assert.ErrorIs(t, err, boom)

	_, again := s.Advance(context.Background())
	assert.Equal(t, err, again)
	assert.Equal(t, 1, calls)
	assert.False(t, s.Finished())
}

func TestStageNilStep(t *testing.T) {
	s := NewStage("empty", func(Tracker) Step { return nil })
	_, err := s.Advance(context.Background())
	assert.ErrorIs(t, err, merrors.ErrStageFailure)
}

func TestStageCanceledContextDoesNotFail(t *testing.T) {
	s := countingStage("c", 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Advance(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, s.Err())

	status, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, status)
}
