package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"sync"
)

const (
	svgFontSize   = 12.0
	svgFont       = "Arial, sans-serif"
	tooltipWidth  = 220.0
	tooltipLineHt = 16.0
)

// SVGSurface renders each flushed scene as a standalone SVG document
type SVGSurface struct {
	width, height float64

	edges     []EdgeSegment
	nodes     []NodeGlyph
	transform Transform
	tooltip   *Tooltip

	mu     sync.RWMutex
	doc    []byte
	closed bool
}

// NewSVGSurface creates a surface producing documents of the given size
func NewSVGSurface(width, height float64) *SVGSurface {
	return &SVGSurface{width: width, height: height, transform: Identity()}
}

func (s *SVGSurface) DrawEdges(edges []EdgeSegment) { s.edges = edges }
func (s *SVGSurface) DrawNodes(nodes []NodeGlyph)   { s.nodes = nodes }
func (s *SVGSurface) ApplyTransform(t Transform)    { s.transform = t }

func (s *SVGSurface) ShowTooltip(t Tooltip) {
	s.tooltip = &t
}

func (s *SVGSurface) HideTooltip() {
	s.tooltip = nil
}

// Flush renders the current scene into a new document
func (s *SVGSurface) Flush() error {
	var svg bytes.Buffer

	fmt.Fprintf(&svg, "<svg width=\"%.0f\" height=\"%.0f\" viewBox=\"0 0 %.0f %.0f\" xmlns=\"http://www.w3.org/2000/svg\">\n",
		s.width, s.height, s.width, s.height)
	svg.WriteString("  <style>\n")
	svg.WriteString("    .edge { stroke: #9ca3af; stroke-width: 1.5px; stroke-opacity: 0.8; }\n")
	fmt.Fprintf(&svg, "    .label { font-family: %s; font-size: %.1fpx; fill: #111827; text-anchor: middle; }\n", svgFont, svgFontSize)
	fmt.Fprintf(&svg, "    .icon { font-size: %.1fpx; text-anchor: middle; dominant-baseline: central; }\n", svgFontSize)
	fmt.Fprintf(&svg, "    .tooltip { font-family: %s; font-size: %.1fpx; fill: #f9fafb; }\n", svgFont, svgFontSize)
	svg.WriteString("  </style>\n")

	t := s.transform
	fmt.Fprintf(&svg, "  <g class=\"scene\" transform=\"translate(%.2f,%.2f) scale(%.4f)\">\n", t.X, t.Y, t.K)

	for _, e := range s.edges {
		fmt.Fprintf(&svg, "    <line class=\"edge\" data-type=\"%s\" x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" />\n",
			html.EscapeString(e.Type), e.X1, e.Y1, e.X2, e.Y2)
	}

	for _, n := range s.nodes {
		st := n.Style
		fmt.Fprintf(&svg, "    <g class=\"node node-%s\" data-id=\"%s\">\n", n.Type, html.EscapeString(n.ID))
		fmt.Fprintf(&svg, "      <circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.1f\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%.1f\" />\n",
			n.X, n.Y, st.Radius, st.Fill, st.Stroke, st.StrokeWidth)
		fmt.Fprintf(&svg, "      <text class=\"icon\" x=\"%.2f\" y=\"%.2f\">%s</text>\n", n.X, n.Y, st.Icon)
		fmt.Fprintf(&svg, "      <text class=\"label\" x=\"%.2f\" y=\"%.2f\">%s</text>\n",
			n.X, n.Y+st.LabelOffset, html.EscapeString(n.Label))
		svg.WriteString("    </g>\n")
	}
	svg.WriteString("  </g>\n")

	if tt := s.tooltip; tt != nil {
		h := tooltipLineHt * float64(len(tt.Lines)+1)
		fmt.Fprintf(&svg, "  <g class=\"tooltip-box\" data-id=\"%s\">\n", html.EscapeString(tt.NodeID))
		fmt.Fprintf(&svg, "    <rect x=\"%.2f\" y=\"%.2f\" width=\"%.0f\" height=\"%.0f\" rx=\"4\" fill=\"#1f2937\" fill-opacity=\"0.92\" />\n",
			tt.X, tt.Y, tooltipWidth, h+8)
		fmt.Fprintf(&svg, "    <text class=\"tooltip\" x=\"%.2f\" y=\"%.2f\" font-weight=\"bold\">%s</text>\n",
			tt.X+8, tt.Y+tooltipLineHt, html.EscapeString(tt.Title))
		for i, l := range tt.Lines {
			fmt.Fprintf(&svg, "    <text class=\"tooltip\" x=\"%.2f\" y=\"%.2f\">%s: %s</text>\n",
				tt.X+8, tt.Y+tooltipLineHt*float64(i+2), html.EscapeString(l.Key), html.EscapeString(l.Value))
		}
		svg.WriteString("  </g>\n")
	}

	svg.WriteString("</svg>\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.doc = svg.Bytes()
	return nil
}

// Bytes returns the last flushed document
func (s *SVGSurface) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// WriteTo writes the last flushed document to w
func (s *SVGSurface) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Bytes())
	return int64(n), err
}

func (s *SVGSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
