package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRenderMetrics() {
	r.FramesRenderedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_frames_rendered_total",
			Help: "Frames drawn to a render surface",
		},
		[]string{"surface"}, // svg, canvas
	)

	r.RenderErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderviz_render_errors_total",
			Help: "Render surface flush failures",
		},
		[]string{"surface"},
	)
}
