package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.LayoutLoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_layout_loads_total",
			Help: "Total number of graph snapshots loaded into the layout engine",
		},
		[]string{"result"}, // started, empty, viewport_unavailable
	)

	r.LayoutTicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "orderviz_layout_ticks_total",
			Help: "Total number of simulation ticks",
		},
	)

	r.LayoutTickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orderviz_layout_tick_duration_seconds",
			Help:    "Wall time spent computing one simulation tick",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.016, 0.05},
		},
	)

	r.LayoutAlpha = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_layout_alpha",
			Help: "Current simulation temperature",
		},
	)

	r.LayoutNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orderviz_layout_nodes",
			Help: "Nodes in the current layout by type",
		},
		[]string{"type"},
	)

	r.LayoutEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_layout_edges",
			Help: "Edges in the current layout",
		},
	)

	r.LayoutDroppedInputs = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_layout_dropped_inputs_total",
			Help: "Snapshot entries dropped during sanitization",
		},
		[]string{"reason"}, // malformed_node, duplicate_node, malformed_edge, dangling_edge
	)

	r.LayoutViewportRetries = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "orderviz_layout_viewport_retries_total",
			Help: "Times the engine deferred layout because the viewport had no size",
		},
	)

	r.LayoutConvergenceTicks = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orderviz_layout_convergence_ticks",
			Help:    "Ticks taken until the layout settled",
			Buckets: []float64{30, 60, 120, 200, 300, 500, 800},
		},
	)

	r.LayoutActiveSimulations = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_layout_active_simulations",
			Help: "Simulation loops currently running",
		},
	)
}
