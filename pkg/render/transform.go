package render

import (
	"math"

	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

const (
	MinScale   = 0.1
	MaxScale   = 5.0
	ZoomFactor = 1.3
)

// Transform maps layout space to screen space: screen = layout*K + (X, Y).
// It never changes node positions.
type Transform struct {
	X, Y float64
	K    float64
}

// Identity is the transform with no pan and unit scale
func Identity() Transform { return Transform{K: 1} }

// Apply maps a layout position to the screen
func (t Transform) Apply(p visualization.Position) visualization.Position {
	return visualization.Position{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen position back to layout space
func (t Transform) Invert(p visualization.Position) visualization.Position {
	return visualization.Position{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// ZoomAt scales by factor while keeping the screen point (sx, sy) fixed.
// The resulting scale is clamped to [MinScale, MaxScale].
func (t Transform) ZoomAt(factor, sx, sy float64) Transform {
	k := clampScale(t.K * factor)
	if k == t.K {
		return t
	}
	anchor := t.Invert(visualization.Position{X: sx, Y: sy})
	return Transform{X: sx - anchor.X*k, Y: sy - anchor.Y*k, K: k}
}

// Translate pans by (dx, dy) screen pixels
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{X: t.X + dx, Y: t.Y + dy, K: t.K}
}

func clampScale(k float64) float64 {
	if math.IsNaN(k) || k <= 0 {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, k))
}
