package generation

import (
	"time"

	"git.home.luguber.info/inful/mapexporter/internal/metrics"
)

// Observer receives callbacks around stage execution and pipeline lifecycle.
type Observer interface {
	OnStageStart(index int, name string)
	OnStageComplete(index int, name string, d time.Duration, result metrics.ResultLabel)
	OnPipelineComplete(d time.Duration)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(int, string)                                         {}
func (NoopObserver) OnStageComplete(int, string, time.Duration, metrics.ResultLabel) {}
func (NoopObserver) OnPipelineComplete(time.Duration)                                 {}

// recorderObserver adapts metrics.Recorder into an Observer.
type recorderObserver struct{ rec metrics.Recorder }

func (r recorderObserver) OnStageStart(int, string) {}

func (r recorderObserver) OnStageComplete(_ int, name string, d time.Duration, result metrics.ResultLabel) {
	r.rec.ObserveStageDuration(name, d)
	r.rec.IncStageResult(name, result)
}

func (r recorderObserver) OnPipelineComplete(d time.Duration) {
	r.rec.ObservePipelineDuration(d)
}
