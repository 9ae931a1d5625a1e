package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// advanceBuckets cover per-tick work slices, which are expected to sit well below a frame.
var advanceBuckets = []float64{0.0001, 0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.1}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	advanceDuration  *prom.HistogramVec
	pipelineDuration prom.Histogram
	stageResults     *prom.CounterVec
	exportOutcomes   *prom.CounterVec
	exportDuration   *prom.HistogramVec
	serverRequests   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "mapexporter",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of generation stages from first advance to completion",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		advanceDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "mapexporter",
			Name:      "advance_duration_seconds",
			Help:      "Duration of a single stage advance call",
			Buckets:   advanceBuckets,
		}, []string{"stage"}),
		pipelineDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "mapexporter",
			Name:      "pipeline_duration_seconds",
			Help:      "Total generation pipeline duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mapexporter",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		exportOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mapexporter",
			Name:      "export_outcomes_total",
			Help:      "Export job outcomes by kind",
		}, []string{"kind", "outcome"}),
		exportDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "mapexporter",
			Name:      "export_duration_seconds",
			Help:      "Export job duration",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		serverRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mapexporter",
			Name:      "server_requests_total",
			Help:      "Artifact server requests by route and status code",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(pr.stageDuration, pr.advanceDuration, pr.pipelineDuration, pr.stageResults,
		pr.exportOutcomes, pr.exportDuration, pr.serverRequests)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveAdvanceDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.advanceDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePipelineDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.pipelineDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncExportOutcome(kind string, outcome ExportOutcomeLabel) {
	if p == nil {
		return
	}
	p.exportOutcomes.WithLabelValues(kind, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveExportDuration(kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.exportDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncServerRequest(route string, status int) {
	if p == nil {
		return
	}
	p.serverRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
