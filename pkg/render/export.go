package render

import (
	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

// SVGDocument draws one frame of snap as a standalone SVG fitted to the
// frame's viewport. Nodes matching highlight are emphasised.
func SVGDocument(snap *graph.Snapshot, f *visualization.Frame, highlight string, logger logging.Logger, reg *metrics.Registry) []byte {
	surface := NewSVGSurface(f.Viewport.Width, f.Viewport.Height)
	r := NewRenderer(surface, "svg", logger, reg)
	defer r.Close()

	r.SetGraph(snap)
	r.OnFrame(f)
	if highlight != "" {
		r.Highlight(highlight)
	}
	r.Fit()
	return surface.Bytes()
}
