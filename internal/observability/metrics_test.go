package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewHTTPCollector(reg)
	require.NoError(t, err)

	h := collector.Middleware("/graph_simulate", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graph_simulate", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Requests.WithLabelValues("/graph_simulate", "POST", "200")))
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "http_request_duration_seconds", map[string]string{
		"route":  "/graph_simulate",
		"method": "POST",
	}))
}

func TestMiddlewareRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewHTTPCollector(reg)
	require.NoError(t, err)

	h := collector.Middleware("/validate", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/validate", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Requests.WithLabelValues("/validate", "POST", "400")))
}

func TestCollectorsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimulationCollector(reg)
	require.NoError(t, err)
	second, err := NewSimulationCollector(reg)
	require.NoError(t, err, "registering twice must reuse the existing collectors")

	first.ObserveRun("ok", 10, 1, time.Millisecond)
	second.ObserveRun("ok", 5, 0, time.Millisecond)

	assert.Equal(t, 15.0, testutil.ToFloat64(first.IterationsTotal))
}

func TestSimulationCollectorObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	require.NoError(t, err)

	collector.ObserveRun("ok", 1000, 37, 20*time.Millisecond)
	collector.ObserveRun("cycle", 0, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Runs.WithLabelValues("cycle")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(collector.IterationsTotal))
	assert.Equal(t, 37.0, testutil.ToFloat64(collector.DiscardedIterations))
	assert.Equal(t, uint64(2), histogramSampleCount(t, reg, "simulation_run_duration_seconds", nil))

	var nilCollector *SimulationCollector
	assert.NotPanics(t, func() { nilCollector.ObserveRun("ok", 1, 0, 0) })
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewHTTPCollector(reg)
	require.NoError(t, err)
	sim, err := NewSimulationCollector(reg)
	require.NoError(t, err)

	collector.SetCatalogSize(3)
	collector.Requests.WithLabelValues("/health", "GET", "200").Inc()
	collector.Durations.WithLabelValues("/health", "GET").Observe(0.01)
	sim.ObserveRun("ok", 10, 0, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req.WithContext(context.Background()))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, metric := range []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"catalog_scenarios 3",
		"simulation_runs_total",
		"simulation_iterations_total 10",
	} {
		assert.Contains(t, body, metric)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	require.NoError(t, err)
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
