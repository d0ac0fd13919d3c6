package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Render server metrics
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	RequestsInFlight  prometheus.Gauge
	ResponseSizeBytes *prometheus.HistogramVec

	// Layout Metrics
	LayoutLoadsTotal        *prometheus.CounterVec
	LayoutTicksTotal        prometheus.Counter
	LayoutTickDuration      prometheus.Histogram
	LayoutAlpha             prometheus.Gauge
	LayoutNodes             *prometheus.GaugeVec
	LayoutEdges             prometheus.Gauge
	LayoutDroppedInputs     *prometheus.CounterVec
	LayoutViewportRetries   prometheus.Counter
	LayoutConvergenceTicks  prometheus.Histogram
	LayoutActiveSimulations prometheus.Gauge

	// Render Metrics
	FramesRenderedTotal *prometheus.CounterVec
	RenderErrorsTotal   *prometheus.CounterVec

	// Action Metrics
	ActionRequestsTotal   *prometheus.CounterVec
	ActionDuration        *prometheus.HistogramVec
	ActionsInFlight       prometheus.Gauge
	ActionRejectedTotal   *prometheus.CounterVec
	SourceLoadsTotal      *prometheus.CounterVec
	SourceLoadDuration    *prometheus.HistogramVec
	DataServiceCallsTotal *prometheus.CounterVec

	// Process metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initServerMetrics()
	r.initLayoutMetrics()
	r.initRenderMetrics()
	r.initActionMetrics()
	r.initProcessMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
