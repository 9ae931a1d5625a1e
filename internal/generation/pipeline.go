package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
	"git.home.luguber.info/inful/mapexporter/internal/metrics"
	"git.home.luguber.info/inful/mapexporter/internal/notify"
)

// Pipeline drives an ordered list of stages. Only the stage under the cursor
// advances and the cursor never moves backwards.
type Pipeline struct {
	stages   []*Stage
	weights  []float64
	prefix   []float64 // prefix[i] is the summed weight of stages before i
	total    float64
	cursor   int
	active   bool
	err      error
	hub      *notify.Hub
	recorder metrics.Recorder
	observer []Observer
	now      func() time.Time

	runStart   time.Time
	stageStart time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWeights assigns a relative weight to each stage, in stage order.
func WithWeights(weights ...float64) Option {
	return func(p *Pipeline) {
		p.weights = append([]float64(nil), weights...)
	}
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = append(p.observer, o)
		}
	}
}

// WithMessages publishes stage transitions on hub instead of a private one.
func WithMessages(hub *notify.Hub) Option {
	return func(p *Pipeline) {
		if hub != nil {
			p.hub = hub
		}
	}
}

// WithRecorder records stage and advance timings.
func WithRecorder(rec metrics.Recorder) Option {
	return func(p *Pipeline) {
		if rec != nil {
			p.recorder = rec
		}
	}
}

// WithClock overrides the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline creates a pipeline over stages. Stage instances belong to a
// single pipeline and must not be reused.
func NewPipeline(stages []*Stage, opts ...Option) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, merrors.ValidationFailed("stages", "pipeline needs at least one stage")
	}
	seen := make(map[*Stage]struct{}, len(stages))
	for i, s := range stages {
		if s == nil {
			return nil, merrors.ValidationFailed("stages", fmt.Sprintf("stage %d is nil", i))
		}
		if _, dup := seen[s]; dup {
			return nil, merrors.ValidationFailed("stages", fmt.Sprintf("stage %q listed twice", s.Name()))
		}
		seen[s] = struct{}{}
	}

	p := &Pipeline{
		stages:   append([]*Stage(nil), stages...),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.hub == nil {
		p.hub = notify.NewHub()
	}
	if _, noop := p.recorder.(metrics.NoopRecorder); !noop {
		p.observer = append(p.observer, recorderObserver{rec: p.recorder})
	}
	if err := p.initWeights(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewPipelineFromFactories builds fresh stages from factories and wraps them in
// a pipeline.
func NewPipelineFromFactories(factories []StageFactory, opts ...Option) (*Pipeline, error) {
	stages := make([]*Stage, 0, len(factories))
	for _, f := range factories {
		if f == nil {
			return nil, merrors.ValidationFailed("stages", "nil stage factory")
		}
		stages = append(stages, f())
	}
	return NewPipeline(stages, opts...)
}

func (p *Pipeline) initWeights() error {
	if p.weights == nil {
		p.weights = make([]float64, len(p.stages))
		for i := range p.weights {
			p.weights[i] = 1
		}
	}
	if len(p.weights) != len(p.stages) {
		return merrors.ValidationFailed("weights",
			fmt.Sprintf("got %d weights for %d stages", len(p.weights), len(p.stages)))
	}
	p.prefix = make([]float64, len(p.stages))
	for i, w := range p.weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return merrors.ValidationFailed("weights", fmt.Sprintf("invalid weight %v for stage %q", w, p.stages[i].Name()))
		}
		p.prefix[i] = p.total
		p.total += w
	}
	if p.total <= 0 {
		return merrors.ValidationFailed("weights", "weights sum to zero")
	}
	return nil
}

// Advance moves the current stage forward by one increment. Once every stage
// finished it keeps returning Completed without doing work.
func (p *Pipeline) Advance(ctx context.Context) (Status, error) {
	if p.Finished() {
		return Completed, nil
	}
	if p.err != nil {
		return Suspended, p.err
	}

	stage := p.stages[p.cursor]
	if !p.active {
		p.startStage(stage)
	}

	t0 := p.now()
	_, err := stage.Advance(ctx)
	p.recorder.ObserveAdvanceDuration(stage.Name(), p.now().Sub(t0))
	if err != nil {
		if stage.Err() == nil {
			// Cancelled before the increment ran; the stage can resume.
			return Suspended, err
		}
		p.failStage(stage, err)
		return Suspended, err
	}
	if !stage.Finished() {
		return Suspended, nil
	}

	p.completeStage(stage)
	if p.Finished() {
		d := p.now().Sub(p.runStart)
		for _, o := range p.observer {
			o.OnPipelineComplete(d)
		}
		slog.Info("Generation finished", logfields.Elapsed(d))
		return Completed, nil
	}
	return Suspended, nil
}

func (p *Pipeline) startStage(stage *Stage) {
	p.active = true
	p.stageStart = p.now()
	if p.cursor == 0 {
		p.runStart = p.stageStart
	}
	for _, o := range p.observer {
		o.OnStageStart(p.cursor, stage.Name())
	}
	slog.Debug("Stage started", logfields.Stage(stage.Name()), logfields.StageIndex(p.cursor))
	p.hub.Publish(notify.SourcePipeline, "Starting: "+stage.Name())
}

func (p *Pipeline) completeStage(stage *Stage) {
	d := p.now().Sub(p.stageStart)
	for _, o := range p.observer {
		o.OnStageComplete(p.cursor, stage.Name(), d, metrics.ResultSuccess)
	}
	slog.Debug("Stage finished", logfields.Stage(stage.Name()), logfields.StageIndex(p.cursor), logfields.Elapsed(d))
	p.hub.Publish(notify.SourcePipeline, "Finished: "+stage.Name())
	p.cursor++
	p.active = false
}

func (p *Pipeline) failStage(stage *Stage, err error) {
	p.err = err
	result := metrics.ResultFatal
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		result = metrics.ResultCanceled
	}
	d := p.now().Sub(p.stageStart)
	for _, o := range p.observer {
		o.OnStageComplete(p.cursor, stage.Name(), d, result)
	}
	slog.Error("Stage failed", logfields.Stage(stage.Name()), logfields.StageIndex(p.cursor), logfields.Error(err))
	p.hub.Publish(notify.SourcePipeline, "Failed: "+stage.Name())
}

// OverallProgress is the weighted aggregate progress in [0,1]. It is exactly 1
// once every stage finished and never decreases.
func (p *Pipeline) OverallProgress() float64 {
	if p.Finished() {
		return 1
	}
	cur := p.stages[p.cursor]
	v := (p.prefix[p.cursor] + p.weights[p.cursor]*cur.Progress()) / p.total
	if v > 1 {
		v = 1
	}
	return v
}

// Finished reports whether the cursor is past the last stage.
func (p *Pipeline) Finished() bool {
	return p.cursor >= len(p.stages)
}

// Current returns the stage under the cursor, or nil when finished.
func (p *Pipeline) Current() *Stage {
	if p.Finished() {
		return nil
	}
	return p.stages[p.cursor]
}

// Cursor is the index of the current stage.
func (p *Pipeline) Cursor() int { return p.cursor }

// Stages returns the stages in pipeline order.
func (p *Pipeline) Stages() []*Stage {
	return append([]*Stage(nil), p.stages...)
}

// Err returns the failure that halted the pipeline, if any.
func (p *Pipeline) Err() error { return p.err }

// Subscribe registers fn for stage transition messages.
func (p *Pipeline) Subscribe(fn notify.Handler) func() {
	return p.hub.Subscribe(fn)
}

// Describe renders a one-line status for hosts.
func (p *Pipeline) Describe() string {
	switch {
	case p.Finished():
		return "Finished"
	case p.err != nil:
		return "Failed: " + p.stages[p.cursor].Name()
	default:
		return fmt.Sprintf("%s (%d%%)", p.stages[p.cursor].Name(), int(p.OverallProgress()*100))
	}
}
