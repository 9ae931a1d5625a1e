package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// ExportOutcomeLabel enumerates export job outcomes.
type ExportOutcomeLabel string

const (
	ExportSuccess            ExportOutcomeLabel = "success"
	ExportPermissionDenied   ExportOutcomeLabel = "permission_denied"
	ExportInvalidDestination ExportOutcomeLabel = "invalid_destination"
	ExportIOFailure          ExportOutcomeLabel = "io_failure"
)

// Recorder defines observability hooks for the generation pipeline, the
// artifact server and the exporter.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveAdvanceDuration(stage string, d time.Duration)
	ObservePipelineDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncExportOutcome(kind string, outcome ExportOutcomeLabel)
	ObserveExportDuration(kind string, d time.Duration)
	IncServerRequest(route string, status int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)     {}
func (NoopRecorder) ObserveAdvanceDuration(string, time.Duration)   {}
func (NoopRecorder) ObservePipelineDuration(time.Duration)          {}
func (NoopRecorder) IncStageResult(string, ResultLabel)             {}
func (NoopRecorder) IncExportOutcome(string, ExportOutcomeLabel)    {}
func (NoopRecorder) ObserveExportDuration(string, time.Duration)    {}
func (NoopRecorder) IncServerRequest(string, int)                   {}
