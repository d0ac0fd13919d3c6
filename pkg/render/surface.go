// Package render draws layout frames onto a Surface. The Renderer owns the
// view transform and tooltip state; surfaces only draw what they are given.
package render

import "github.com/dd0wney/cluso-orderviz/pkg/graph"

// EdgeSegment is a straight line between two node centres in layout space
type EdgeSegment struct {
	SourceID string
	TargetID string
	Type     string
	X1, Y1   float64
	X2, Y2   float64
}

// NodeGlyph is everything a surface needs to draw one node in layout space
type NodeGlyph struct {
	ID     string
	Type   graph.NodeType
	X, Y   float64
	Label  string
	Style  Style
	Pinned bool
}

// TooltipLine is one key/value row of a tooltip
type TooltipLine struct {
	Key   string
	Value string
}

// Tooltip is anchored in screen space
type Tooltip struct {
	NodeID string
	X, Y   float64
	Title  string
	Lines  []TooltipLine
}

// Surface is a drawing backend. The Renderer calls DrawEdges, DrawNodes and
// ApplyTransform for each frame and then Flush. Calls are serialized by the
// Renderer; implementations need no locking of their own for those calls.
type Surface interface {
	DrawEdges(edges []EdgeSegment)
	DrawNodes(nodes []NodeGlyph)
	ShowTooltip(t Tooltip)
	HideTooltip()
	ApplyTransform(t Transform)
	Flush() error
	Close() error
}
