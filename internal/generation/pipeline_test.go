package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/metrics"
	"git.home.luguber.info/inful/mapexporter/internal/notify"
)

func TestPipelineTwoStagesProgress(t *testing.T) {
	p, err := NewPipeline([]*Stage{countingStage("A", 4, nil), countingStage("B", 4, nil)})
	require.NoError(t, err)
	ctx := context.Background()

	assert.InDelta(t, 0.0, p.OverallProgress(), 0)
	for range 2 {
		_, err = p.Advance(ctx)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.25, p.OverallProgress(), 1e-9)

	for range 2 {
		_, err = p.Advance(ctx)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.5, p.OverallProgress(), 1e-9)
	assert.Equal(t, 1, p.Cursor())
	assert.Equal(t, "B", p.Current().Name())

	var status Status
	for range 4 {
		status, err = p.Advance(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, Completed, status)
	assert.True(t, p.Finished())
	assert.Equal(t, 1.0, p.OverallProgress())
	assert.Nil(t, p.Current())
	assert.Equal(t, "Finished", p.Describe())
}

func TestPipelineAdvanceAfterFinish(t *testing.T) {
	calls := 0
	p, err := NewPipeline([]*Stage{countingStage("only", 1, &calls)})
	require.NoError(t, err)
	for range 5 {
		status, err := p.Advance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Completed, status)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1.0, p.OverallProgress())
}

func TestPipelineProgressMonotonicAndOrdered(t *testing.T) {
	stages := []*Stage{countingStage("a", 3, nil), countingStage("b", 5, nil), countingStage("c", 2, nil)}
	p, err := NewPipeline(stages, WithWeights(1, 3, 2))
	require.NoError(t, err)

	last := p.OverallProgress()
	for !p.Finished() {
		_, err := p.Advance(context.Background())
		require.NoError(t, err)
		cur := p.OverallProgress()
		assert.GreaterOrEqual(t, cur, last)
		last = cur

		for i := p.Cursor() + 1; i < len(stages); i++ {
			assert.Zero(t, stages[i].Progress(), "stage %d ran before its predecessor finished", i)
		}
	}
	assert.Equal(t, 1.0, last)
}

func TestPipelineWeightedProgress(t *testing.T) {
	p, err := NewPipeline([]*Stage{countingStage("a", 1, nil), countingStage("b", 2, nil)}, WithWeights(1, 3))
	require.NoError(t, err)
	_, err = p.Advance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.25, p.OverallProgress(), 1e-9)
	_, err = p.Advance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.625, p.OverallProgress(), 1e-9)
}

func TestNewPipelineValidation(t *testing.T) {
	a := countingStage("a", 1, nil)
	tests := []struct {
		name   string
		stages []*Stage
		opts   []Option
	}{
		{"empty", nil, nil},
		{"nil stage", []*Stage{nil}, nil},
		{"duplicate", []*Stage{a, a}, nil},
		{"weight count", []*Stage{countingStage("x", 1, nil)}, []Option{WithWeights(1, 2)}},
		{"negative weight", []*Stage{countingStage("x", 1, nil)}, []Option{WithWeights(-1)}},
		{"zero sum", []*Stage{countingStage("x", 1, nil)}, []Option{WithWeights(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.stages, tt.opts...)
			require.Error(t, err)
			assert.Equal(t, merrors.CategoryValidation, merrors.GetCategory(err))
		})
	}
}

func TestPipelineErrorHaltsAtStage(t *testing.T) {
	boom := errors.New("layout exploded")
	bCalls := 0
	failing := NewStage("fails", func(Tracker) Step {
		return StepFunc(func(context.Context) (Status, error) { return Suspended, boom })
	})
	p, err := NewPipeline([]*Stage{countingStage("ok", 1, nil), failing, countingStage("after", 1, &bCalls)})
	require.NoError(t, err)

	_, err = p.Advance(context.Background())
	require.NoError(t, err)
	_, err = p.Advance(context.Background())
	require.ErrorIs(t, err, merrors.ErrStageFailure)
	require.ErrorIs(t, err, boom)

	_, again := p.Advance(context.Background())
	assert.Equal(t, err, again)
	assert.Equal(t, 1, p.Cursor())
	assert.Equal(t, 0, bCalls)
	assert.Equal(t, err, p.Err())
	assert.Equal(t, "Failed: fails", p.Describe())
}

func TestPipelineMessages(t *testing.T) {
	hub := notify.NewHub()
	p, err := NewPipeline([]*Stage{countingStage("A", 1, nil), countingStage("B", 2, nil)}, WithMessages(hub))
	require.NoError(t, err)

	var got []string
	unsubscribe := p.Subscribe(func(m notify.Message) {
		assert.Equal(t, notify.SourcePipeline, m.Source)
		got = append(got, m.Text)
	})
	defer unsubscribe()

	for !p.Finished() {
		_, err := p.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Starting: A", "Finished: A", "Starting: B", "Finished: B"}, got)
}

type recordingObserver struct {
	started   []string
	completed []metrics.ResultLabel
	done      bool
}

func (r *recordingObserver) OnStageStart(_ int, name string) { r.started = append(r.started, name) }
func (r *recordingObserver) OnStageComplete(_ int, _ string, _ time.Duration, res metrics.ResultLabel) {
	r.completed = append(r.completed, res)
}
func (r *recordingObserver) OnPipelineComplete(time.Duration) { r.done = true }

func TestPipelineObserver(t *testing.T) {
	obs := &recordingObserver{}
	p, err := NewPipelineFromFactories([]StageFactory{
		func() *Stage { return countingStage("one", 1, nil) },
		func() *Stage { return countingStage("two", 1, nil) },
	}, WithObserver(obs))
	require.NoError(t, err)
	for !p.Finished() {
		_, err := p.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"one", "two"}, obs.started)
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultSuccess, metrics.ResultSuccess}, obs.completed)
	assert.True(t, obs.done)
}
