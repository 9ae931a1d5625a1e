package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("Laying out rooms", 150*time.Millisecond)
	pr.ObserveAdvanceDuration("Laying out rooms", 2*time.Millisecond)
	pr.ObservePipelineDuration(500 * time.Millisecond)
	pr.IncStageResult("Laying out rooms", ResultSuccess)
	pr.IncExportOutcome("static", ExportSuccess)
	pr.ObserveExportDuration("static", time.Second)
	pr.IncServerRequest("/api/manifest", http.StatusOK)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "mapexporter_stage_results_total")
	assert.Contains(t, names, "mapexporter_export_outcomes_total")
	assert.Contains(t, names, "mapexporter_server_requests_total")
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageDuration("s", time.Second)
		pr.IncStageResult("s", ResultFatal)
		pr.IncServerRequest("/", 500)
	})
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncExportOutcome("server", ExportIOFailure)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `mapexporter_export_outcomes_total{kind="server",outcome="io_failure"} 1`))
}
