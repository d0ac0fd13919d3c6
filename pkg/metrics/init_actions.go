package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initActionMetrics() {
	r.ActionRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_action_requests_total",
			Help: "Node actions dispatched to the data service",
		},
		[]string{"action", "status"}, // status: success, error
	)

	r.ActionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderviz_action_duration_seconds",
			Help:    "Node action latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	r.ActionsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "orderviz_actions_in_flight",
			Help: "Node actions currently awaiting the data service",
		},
	)

	r.ActionRejectedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_action_rejected_total",
			Help: "Node actions rejected before reaching the data service",
		},
		[]string{"reason"}, // busy, unsupported
	)

	r.SourceLoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_source_loads_total",
			Help: "Graph snapshots read from a source",
		},
		[]string{"driver", "status"},
	)

	r.SourceLoadDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderviz_source_load_duration_seconds",
			Help:    "Graph snapshot load latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver"},
	)

	r.DataServiceCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_dataservice_calls_total",
			Help: "Calls made to the data-access service",
		},
		[]string{"endpoint", "code"},
	)
}
