package generation

import (
	"context"
	"time"
)

// Each runs fn once per advance for i in [0,n) and reports (i+1)/n progress.
func Each(t Tracker, n int, fn func(ctx context.Context, i int) error) Step {
	return Batched(t, n, 1, func(ctx context.Context, lo, _ int) error {
		return fn(ctx, lo)
	})
}

// Batched runs fn over consecutive [lo,hi) windows of at most size items, one
// window per advance.
func Batched(t Tracker, n, size int, fn func(ctx context.Context, lo, hi int) error) Step {
	if size < 1 {
		size = 1
	}
	next := 0
	return StepFunc(func(ctx context.Context) (Status, error) {
		if next >= n {
			t.SetProgress(1)
			return Completed, nil
		}
		hi := min(next+size, n)
		if err := fn(ctx, next, hi); err != nil {
			return Suspended, err
		}
		next = hi
		t.SetProgress(float64(next) / float64(n))
		if next >= n {
			return Completed, nil
		}
		return Suspended, nil
	})
}

// Once wraps a single increment of work.
func Once(fn func(ctx context.Context) error) Step {
	return StepFunc(func(ctx context.Context) (Status, error) {
		if err := fn(ctx); err != nil {
			return Suspended, err
		}
		return Completed, nil
	})
}

// Sequence chains steps. Each advance drives the first unfinished step, and the
// sequence completes on the advance that completes its last step.
func Sequence(steps ...Step) Step {
	i := 0
	return StepFunc(func(ctx context.Context) (Status, error) {
		if i >= len(steps) {
			return Completed, nil
		}
		status, err := steps[i].Advance(ctx)
		if err != nil {
			return Suspended, err
		}
		if status == Completed {
			i++
			if i >= len(steps) {
				return Completed, nil
			}
		}
		return Suspended, nil
	})
}

// TimeSliced repeats step within one advance until it completes or budget is
// spent. The inner step always runs at least once per advance.
func TimeSliced(step Step, budget time.Duration, now func() time.Time) Step {
	if now == nil {
		now = time.Now
	}
	return StepFunc(func(ctx context.Context) (Status, error) {
		start := now()
		for {
			status, err := step.Advance(ctx)
			if err != nil || status == Completed {
				return status, err
			}
			if budget <= 0 || now().Sub(start) >= budget {
				return Suspended, nil
			}
			if err := ctx.Err(); err != nil {
				return Suspended, nil
			}
		}
	})
}
