// Package metrics provides observability hooks for generation, serving and export.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs nil checks:
//
//	p, _ := generation.NewPipeline(stages, generation.WithRecorder(metrics.NoopRecorder{}))
//
// When the artifact server is started with metrics enabled, a PrometheusRecorder
// is registered on a private registry and exposed at /metrics:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	handler := metrics.HTTPHandler(reg)
package metrics
