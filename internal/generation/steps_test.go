package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct{ p float64 }

func (f *fakeTracker) SetProgress(p float64) { f.p = p }
func (f *fakeTracker) Progress() float64     { return f.p }

func TestBatchedWindows(t *testing.T) {
	tr := &fakeTracker{}
	var windows [][2]int
	step := Batched(tr, 5, 2, func(_ context.Context, lo, hi int) error {
		windows = append(windows, [2]int{lo, hi})
		return nil
	})
	var status Status
	for status != Completed {
		var err error
		status, err = step.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, windows)
	assert.InDelta(t, 1.0, tr.p, 0)
}

func TestEachZeroItems(t *testing.T) {
	tr := &fakeTracker{}
	status, err := Each(tr, 0, func(context.Context, int) error { return nil }).Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, status)
	assert.InDelta(t, 1.0, tr.p, 0)
}

func TestSequence(t *testing.T) {
	var order []string
	mk := func(name string) Step {
		return Once(func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	seq := Sequence(mk("a"), mk("b"))
	status, err := seq.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Suspended, status)
	status, err = seq.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, status)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSequencePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Sequence(Once(func(context.Context) error { return boom })).Advance(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestTimeSlicedBudget(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	calls := 0
	inner := StepFunc(func(context.Context) (Status, error) {
		calls++
		now = now.Add(time.Millisecond)
		if calls == 10 {
			return Completed, nil
		}
		return Suspended, nil
	})
	step := TimeSliced(inner, 3*time.Millisecond, clock)

	status, err := step.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Suspended, status)
	assert.Equal(t, 3, calls)

	for status != Completed {
		status, err = step.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 10, calls)
}

func TestTimeSlicedZeroBudgetRunsOnce(t *testing.T) {
	calls := 0
	inner := StepFunc(func(context.Context) (Status, error) {
		calls++
		return Suspended, nil
	})
	_, err := TimeSliced(inner, 0, nil).Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
