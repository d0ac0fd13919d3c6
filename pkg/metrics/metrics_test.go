package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.RequestsTotal == nil {
		t.Error("RequestsTotal not initialized")
	}
	if r.LayoutTicksTotal == nil {
		t.Error("LayoutTicksTotal not initialized")
	}
	if r.ActionRequestsTotal == nil {
		t.Error("ActionRequestsTotal not initialized")
	}
	if r.FramesRenderedTotal == nil {
		t.Error("FramesRenderedTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry

	// None of these may panic
	r.RecordRequest("GET", "/", "200", time.Millisecond)
	r.RecordTick(0.5, time.Millisecond)
	r.RecordLoad("started", 1, 2, 3)
	r.RecordDropped("dangling_edge", 1)
	r.RecordViewportRetry()
	r.RecordConvergence(10)
	r.SimulationStarted()
	r.SimulationStopped()
	r.RecordFrame("svg", nil)
	r.RecordAction("download", "success", time.Millisecond)
	r.RecordActionRejected("busy")
	r.ActionStarted()
	r.ActionFinished()
	r.RecordSourceLoad("file", "success", time.Millisecond)
	r.RecordDataServiceCall("metadata", "200")
	r.UpdateSystemMetrics(time.Now())
}

func TestRecordRequestByRoute(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("GET", "/graphs/{scope}.svg", "200", 100*time.Millisecond)
	r.RecordRequest("GET", "/graphs/{scope}.svg", "404", 50*time.Millisecond)

	counter, err := r.RequestsTotal.GetMetricWithLabelValues("GET", "/graphs/{scope}.svg", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, counter); got != 1 {
		t.Errorf("Counter value = %v, want 1", got)
	}
}

func TestRecordTick(t *testing.T) {
	r := NewRegistry()

	r.RecordTick(0.9, time.Millisecond)
	r.RecordTick(0.8, 2*time.Millisecond)

	if got := counterValue(t, r.LayoutTicksTotal); got != 2 {
		t.Errorf("Ticks = %v, want 2", got)
	}
	if got := gaugeValue(t, r.LayoutAlpha); got != 0.8 {
		t.Errorf("Alpha = %v, want 0.8", got)
	}

	var metric dto.Metric
	if err := r.LayoutTickDuration.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("Tick duration sample count = %v, want 2", metric.Histogram.GetSampleCount())
	}
}

func TestRecordLoadAndDropped(t *testing.T) {
	r := NewRegistry()

	r.RecordLoad("started", 3, 6, 9)
	r.RecordDropped("dangling_edge", 2)
	r.RecordDropped("dangling_edge", 0)

	orders, _ := r.LayoutNodes.GetMetricWithLabelValues("order")
	docs, _ := r.LayoutNodes.GetMetricWithLabelValues("document")

	tests := []struct {
		name     string
		gauge    prometheus.Gauge
		expected float64
	}{
		{"orders", orders, 3},
		{"documents", docs, 6},
		{"edges", r.LayoutEdges, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gaugeValue(t, tt.gauge); got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}

	dropped, _ := r.LayoutDroppedInputs.GetMetricWithLabelValues("dangling_edge")
	if got := counterValue(t, dropped); got != 2 {
		t.Errorf("Dropped = %v, want 2", got)
	}
}

func TestActionMetrics(t *testing.T) {
	r := NewRegistry()

	r.ActionStarted()
	r.ActionStarted()
	r.ActionFinished()
	if got := gaugeValue(t, r.ActionsInFlight); got != 1 {
		t.Errorf("In flight = %v, want 1", got)
	}

	r.RecordAction("download", "error", 30*time.Millisecond)
	r.RecordAction("download", "error", 10*time.Millisecond)
	r.RecordActionRejected("busy")

	errs, _ := r.ActionRequestsTotal.GetMetricWithLabelValues("download", "error")
	if got := counterValue(t, errs); got != 2 {
		t.Errorf("Download errors = %v, want 2", got)
	}
	busy, _ := r.ActionRejectedTotal.GetMetricWithLabelValues("busy")
	if got := counterValue(t, busy); got != 1 {
		t.Errorf("Busy rejections = %v, want 1", got)
	}
}

func TestRecordFrame(t *testing.T) {
	r := NewRegistry()

	r.RecordFrame("svg", nil)
	r.RecordFrame("svg", errors.New("disk full"))

	frames, _ := r.FramesRenderedTotal.GetMetricWithLabelValues("svg")
	if got := counterValue(t, frames); got != 2 {
		t.Errorf("Frames = %v, want 2", got)
	}
	failures, _ := r.RenderErrorsTotal.GetMetricWithLabelValues("svg")
	if got := counterValue(t, failures); got != 1 {
		t.Errorf("Render errors = %v, want 1", got)
	}
}

func TestSimulationGauge(t *testing.T) {
	r := NewRegistry()

	r.SimulationStarted()
	r.SimulationStarted()
	r.SimulationStopped()

	if got := gaugeValue(t, r.LayoutActiveSimulations); got != 1 {
		t.Errorf("Active simulations = %v, want 1", got)
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	if got := gaugeValue(t, r.UptimeSeconds); got < 59 {
		t.Errorf("Uptime = %v, want >= 59", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("Goroutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.MemoryAllocBytes); got <= 0 {
		t.Errorf("MemoryAllocBytes = %v, want > 0", got)
	}
}

func TestGetPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	promRegistry := r.GetPrometheusRegistry()

	if promRegistry == nil {
		t.Fatal("GetPrometheusRegistry() returned nil")
	}

	metrics, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"orderviz_layout_ticks_total",
		"orderviz_layout_alpha",
		"orderviz_actions_in_flight",
		"orderviz_process_uptime_seconds",
		"orderviz_server_requests_in_flight",
	}

	metricNames := make(map[string]bool)
	for _, m := range metrics {
		metricNames[m.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !metricNames[expected] {
			t.Errorf("Expected metric %s not found", expected)
		}
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordTick(0.5, time.Millisecond)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := counterValue(t, r.LayoutTicksTotal); got != 1000 {
		t.Errorf("Counter = %v, want 1000", got)
	}
}

func TestServerMetricsDescribeRenderServer(t *testing.T) {
	r := NewRegistry()
	r.RecordRequest("GET", "GET /graphs/{scope}/layout", "200", 300*time.Millisecond)
	r.ResponseSizeBytes.WithLabelValues("GET", "GET /graphs/{scope}/layout").Observe(2048)
	r.UpdateSystemMetrics(time.Now())

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	tests := []struct {
		name     string
		helpWord string
		labels   []string
	}{
		{"orderviz_server_requests_total", "Render server", []string{"method", "route", "status"}},
		{"orderviz_server_request_duration_seconds", "layout", []string{"method", "route", "status"}},
		{"orderviz_server_response_size_bytes", "SVG", []string{"method", "route"}},
		{"orderviz_process_uptime_seconds", "render server", nil},
		{"orderviz_process_goroutines", "layout loops", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := byName[tt.name]
			if !ok {
				t.Fatalf("metric %s not gathered", tt.name)
			}
			if !strings.Contains(f.GetHelp(), tt.helpWord) {
				t.Errorf("help %q does not mention %q", f.GetHelp(), tt.helpWord)
			}
			var got []string
			for _, l := range f.GetMetric()[0].GetLabel() {
				got = append(got, l.GetName())
			}
			if strings.Join(got, ",") != strings.Join(tt.labels, ",") {
				t.Errorf("labels = %v, want %v", got, tt.labels)
			}
		})
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	r.RecordAction("view_metadata", "success", time.Millisecond)
	r.RecordRequest("GET", "/health", "200", time.Millisecond)

	metrics, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	for _, m := range metrics {
		name := m.GetName()
		if !strings.HasPrefix(name, "orderviz_") {
			t.Errorf("Metric %s does not have orderviz_ prefix", name)
		}
	}
}

func BenchmarkRecordTick(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordTick(0.5, time.Millisecond)
	}
}
