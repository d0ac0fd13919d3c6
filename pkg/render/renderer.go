package render

import (
	"math"
	"strings"
	"sync"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

// fitPadding is the screen margin left around content by Fit
const fitPadding = 40.0

// Renderer turns layout frames into surface draw calls. It implements
// visualization.FrameSink and is safe for concurrent use: frames arrive on
// the simulation goroutine while pointer handlers run on the UI goroutine.
type Renderer struct {
	surface Surface
	name    string
	logger  logging.Logger
	metrics *metrics.Registry

	mu          sync.Mutex
	nodes       map[string]graph.Node
	frame       *visualization.Frame
	transform   Transform
	tooltip     *Tooltip
	highlighted map[string]bool
	closed      bool
}

// NewRenderer creates a renderer drawing to surface. name labels the
// surface in metrics and logs.
func NewRenderer(surface Surface, name string, logger logging.Logger, reg *metrics.Registry) *Renderer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Renderer{
		surface:     surface,
		name:        name,
		logger:      logger.With(logging.Component("render"), logging.String("surface", name)),
		metrics:     reg,
		nodes:       map[string]graph.Node{},
		transform:   Identity(),
		highlighted: map[string]bool{},
	}
}

// SetGraph gives the renderer the node data behind the ids in upcoming
// frames. It resets highlight and tooltip state.
func (r *Renderer) SetGraph(s *graph.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = map[string]graph.Node{}
	if s != nil {
		for _, n := range s.Nodes {
			if _, dup := r.nodes[n.ID]; !dup {
				r.nodes[n.ID] = n
			}
		}
	}
	r.frame = nil
	r.highlighted = map[string]bool{}
	r.hideTooltipLocked()
}

// Node returns the data of a node in the current graph
func (r *Renderer) Node(id string) (graph.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if ok {
		n.Highlighted = r.highlighted[id]
	}
	return n, ok
}

// OnFrame draws f: edges first, then nodes, then flushes.
func (r *Renderer) OnFrame(f *visualization.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || f == nil {
		return
	}
	r.frame = f
	r.drawLocked()
}

func (r *Renderer) drawLocked() {
	f := r.frame
	if f == nil {
		return
	}

	edges := make([]EdgeSegment, 0, len(f.Edges))
	for _, e := range f.Edges {
		if e.Source < 0 || e.Source >= len(f.Nodes) || e.Target < 0 || e.Target >= len(f.Nodes) {
			continue
		}
		s, t := f.Nodes[e.Source], f.Nodes[e.Target]
		edges = append(edges, EdgeSegment{
			SourceID: s.ID, TargetID: t.ID, Type: e.Type,
			X1: s.X, Y1: s.Y, X2: t.X, Y2: t.Y,
		})
	}

	glyphs := make([]NodeGlyph, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		label := n.ID
		if data, ok := r.nodes[n.ID]; ok {
			label = data.DisplayLabel()
		}
		glyphs = append(glyphs, NodeGlyph{
			ID:     n.ID,
			Type:   n.Type,
			X:      n.X,
			Y:      n.Y,
			Label:  label,
			Style:  StyleFor(n.Type, r.highlighted[n.ID]),
			Pinned: n.Pinned,
		})
	}

	r.surface.ApplyTransform(r.transform)
	r.surface.DrawEdges(edges)
	r.surface.DrawNodes(glyphs)
	err := r.surface.Flush()
	r.metrics.RecordFrame(r.name, err)
	if err != nil {
		r.logger.Warn("flush failed", logging.Error(err), logging.Tick(f.Tick))
	}
}

// Frame returns the last frame drawn
func (r *Renderer) Frame() *visualization.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// Transform returns the current view transform
func (r *Renderer) Transform() Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transform
}

func (r *Renderer) setTransformLocked(t Transform) {
	if r.closed || t == r.transform {
		return
	}
	r.transform = t
	if r.frame != nil {
		r.drawLocked()
	} else {
		r.surface.ApplyTransform(t)
	}
}

func (r *Renderer) viewportCenterLocked() (float64, float64) {
	if r.frame == nil || !r.frame.Viewport.Valid() {
		return 0, 0
	}
	c := r.frame.Viewport.Center()
	return c.X, c.Y
}

// ZoomIn scales up by ZoomFactor around the viewport centre
func (r *Renderer) ZoomIn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cx, cy := r.viewportCenterLocked()
	r.setTransformLocked(r.transform.ZoomAt(ZoomFactor, cx, cy))
}

// ZoomOut scales down by ZoomFactor around the viewport centre
func (r *Renderer) ZoomOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cx, cy := r.viewportCenterLocked()
	r.setTransformLocked(r.transform.ZoomAt(1/ZoomFactor, cx, cy))
}

// ZoomAt scales by factor keeping the screen point (sx, sy) fixed
func (r *Renderer) ZoomAt(factor, sx, sy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setTransformLocked(r.transform.ZoomAt(factor, sx, sy))
}

// ResetZoom restores the identity transform
func (r *Renderer) ResetZoom() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setTransformLocked(Identity())
}

// Pan translates the view by (dx, dy) screen pixels
func (r *Renderer) Pan(dx, dy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setTransformLocked(r.transform.Translate(dx, dy))
}

// Fit sets a transform that shows every node of the current frame inside
// the viewport. It does nothing without a frame.
func (r *Renderer) Fit() {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.frame
	if f.Empty() || !f.Viewport.Valid() {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range f.Nodes {
		s := StyleFor(n.Type, false)
		minX = math.Min(minX, n.X-s.Radius)
		maxX = math.Max(maxX, n.X+s.Radius)
		minY = math.Min(minY, n.Y-s.Radius)
		maxY = math.Max(maxY, n.Y+s.LabelOffset)
	}

	w := math.Max(maxX-minX, 1)
	h := math.Max(maxY-minY, 1)
	availW := math.Max(f.Viewport.Width-2*fitPadding, 1)
	availH := math.Max(f.Viewport.Height-2*fitPadding, 1)
	k := clampScale(math.Min(availW/w, availH/h))

	c := f.Viewport.Center()
	midX, midY := (minX+maxX)/2, (minY+maxY)/2
	r.setTransformLocked(Transform{X: c.X - midX*k, Y: c.Y - midY*k, K: k})
}

// NodeAt returns the topmost node under the screen point (sx, sy)
func (r *Renderer) NodeAt(sx, sy float64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frame == nil {
		return "", false
	}
	p := r.transform.Invert(visualization.Position{X: sx, Y: sy})
	// nodes drawn later sit on top
	for i := len(r.frame.Nodes) - 1; i >= 0; i-- {
		n := r.frame.Nodes[i]
		radius := StyleFor(n.Type, false).Radius
		if math.Hypot(p.X-n.X, p.Y-n.Y) <= radius {
			return n.ID, true
		}
	}
	return "", false
}

// ShowTooltipFor shows the tooltip of id for a pointer at screen (sx, sy)
func (r *Renderer) ShowTooltipFor(id string, sx, sy float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	n, ok := r.nodes[id]
	if !ok {
		return false
	}
	t := TooltipFor(n, sx, sy)
	r.tooltip = &t
	r.surface.ShowTooltip(t)
	r.redrawLocked()
	return true
}

// HideTooltip removes any visible tooltip
func (r *Renderer) HideTooltip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hideTooltipLocked()
}

func (r *Renderer) hideTooltipLocked() {
	if r.tooltip == nil {
		return
	}
	r.tooltip = nil
	r.surface.HideTooltip()
	r.redrawLocked()
}

// redrawLocked flushes the last frame again so tooltip changes show up even
// when the layout has settled and no new frames arrive
func (r *Renderer) redrawLocked() {
	if !r.closed && r.frame != nil {
		r.drawLocked()
	}
}

// Tooltip returns the visible tooltip, if any
func (r *Renderer) Tooltip() (Tooltip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tooltip == nil {
		return Tooltip{}, false
	}
	return *r.tooltip, true
}

// Highlight marks nodes whose id or label contains term, case-insensitively,
// and redraws. An empty term clears all highlights. It returns the number of
// highlighted nodes.
func (r *Renderer) Highlight(term string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.highlighted = map[string]bool{}
	term = strings.ToLower(strings.TrimSpace(term))
	if term != "" {
		for id, n := range r.nodes {
			if strings.Contains(strings.ToLower(id), term) || strings.Contains(strings.ToLower(n.Label), term) {
				r.highlighted[id] = true
			}
		}
	}
	if !r.closed {
		r.drawLocked()
	}
	return len(r.highlighted)
}

// Close releases tooltip and transform state and closes the surface.
// Frames arriving afterwards are ignored.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.hideTooltipLocked()
	r.transform = Identity()
	r.frame = nil
	return r.surface.Close()
}
