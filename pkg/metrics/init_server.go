package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render server traffic is labelled by route pattern, never by raw path, so
// order scopes do not turn into label values.
func (r *Registry) initServerMetrics() {
	r.RequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_server_requests_total",
			Help: "Render server requests by route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	r.RequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "orderviz_server_request_duration_seconds",
			Help: "Render server latency, including the layout run for layout and SVG routes",
			// layouts run until the simulation settles
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	r.RequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_server_requests_in_flight",
			Help: "Render server requests currently being handled",
		},
	)

	r.ResponseSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderviz_server_response_size_bytes",
			Help:    "Size of layout JSON and SVG bodies written by the render server",
			Buckets: prometheus.ExponentialBuckets(512, 4, 7),
		},
		[]string{"method", "route"},
	)
}

func (r *Registry) initProcessMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_process_uptime_seconds",
			Help: "Seconds since the render server started",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_process_goroutines",
			Help: "Goroutines alive, including layout loops and action workers",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_process_heap_alloc_bytes",
			Help: "Heap bytes in use by loaded snapshots and simulations",
		},
	)

	r.MemorySysBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_process_sys_bytes",
			Help: "Bytes of memory obtained from the OS",
		},
	)
}
