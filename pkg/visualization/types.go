package visualization

import (
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// Position represents a 2D coordinate in layout space (pixels)
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the size of the drawing area in pixels
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive finite numbers
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0 && !isBad(v.Width) && !isBad(v.Height)
}

// Center returns the midpoint of the viewport
func (v Viewport) Center() Position {
	return Position{X: v.Width / 2, Y: v.Height / 2}
}

// ViewportFunc reports the current viewport size. It may return a zero
// viewport while the host surface has not been sized yet.
type ViewportFunc func() Viewport

// Pin is a fixed position exempt from forces. Both coordinates are set
// together; a node is either pinned at (X, Y) or not pinned at all.
type Pin struct {
	X, Y float64
	// Drag marks pins placed by pointer interaction rather than initial placement
	Drag bool
}

// NodePosition is one node's state inside a Frame
type NodePosition struct {
	ID     string         `json:"id"`
	Type   graph.NodeType `json:"type"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Pinned bool           `json:"pinned,omitempty"`
}

// FrameEdge references its endpoints by index into Frame.Nodes
type FrameEdge struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Type   string `json:"type,omitempty"`
}

// Frame is an immutable copy of the layout after one tick. Frame.Nodes is
// ordered like the sanitized snapshot the simulation was built from.
type Frame struct {
	Generation uint64         `json:"generation"`
	Tick       int            `json:"tick"`
	Elapsed    time.Duration  `json:"elapsed_ns"`
	Alpha      float64        `json:"alpha"`
	Viewport   Viewport       `json:"viewport"`
	Nodes      []NodePosition `json:"nodes"`
	Edges      []FrameEdge    `json:"edges"`
}

// Empty reports whether the frame carries no nodes
func (f *Frame) Empty() bool { return f == nil || len(f.Nodes) == 0 }

// Position returns the position of the node with the given id
func (f *Frame) Position(id string) (Position, bool) {
	if f == nil {
		return Position{}, false
	}
	for _, n := range f.Nodes {
		if n.ID == id {
			return Position{X: n.X, Y: n.Y}, true
		}
	}
	return Position{}, false
}

// FrameSink receives a frame after every simulation tick. It is the only
// channel through which layout changes reach a renderer. Implementations
// must not block: the simulation goroutine calls OnFrame directly.
type FrameSink interface {
	OnFrame(f *Frame)
}

// FrameSinkFunc adapts a function to FrameSink
type FrameSinkFunc func(f *Frame)

// OnFrame calls fn(f)
func (fn FrameSinkFunc) OnFrame(f *Frame) { fn(f) }
