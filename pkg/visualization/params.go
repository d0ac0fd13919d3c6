package visualization

import (
	"math"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// Force parameter bounds. Repulsion is negative (pushes nodes apart).
const (
	RepulsionScale = -300.0
	MinRepulsion   = -800.0
	MaxRepulsion   = -100.0

	BaseLinkDistance = 150.0
	LinkDistanceStep = 0.5
	MinLinkDistance  = 80.0
	MaxLinkDistance  = 200.0

	CenteringStrength = 0.05

	// OrderSeparation is the minimum distance between two orders;
	// DocumentSeparation applies to any pair with a document in it
	OrderSeparation    = 35.0
	DocumentSeparation = 25.0

	// densityCell is the area of one 100x100px cell
	densityCell = 10000.0
)

// Density is the number of nodes per 100x100px cell of the viewport
func Density(nodeCount int, vp Viewport) float64 {
	if !vp.Valid() {
		return 0
	}
	return float64(nodeCount) / (vp.Width * vp.Height / densityCell)
}

// RepulsionStrength scales pairwise repulsion with density, bounded to
// [MinRepulsion, MaxRepulsion].
func RepulsionStrength(density float64) float64 {
	return clamp(RepulsionScale*math.Sqrt(math.Max(density, 0)), MinRepulsion, MaxRepulsion)
}

// LinkDistance is the rest length applied to every edge, shrinking as the
// graph grows, bounded to [MinLinkDistance, MaxLinkDistance].
func LinkDistance(nodeCount int) float64 {
	return clamp(BaseLinkDistance-LinkDistanceStep*float64(nodeCount), MinLinkDistance, MaxLinkDistance)
}

// CollisionDistance is the minimum centre-to-centre distance the collision
// force keeps between a node of type a and one of type b
func CollisionDistance(a, b graph.NodeType) float64 {
	if a == graph.TypeOrder && b == graph.TypeOrder {
		return OrderSeparation
	}
	return DocumentSeparation
}

// Parameters bundles the density-adaptive force settings for one graph
type Parameters struct {
	Density      float64 `json:"density"`
	Repulsion    float64 `json:"repulsion"`
	LinkDistance float64 `json:"link_distance"`
}

// ParametersFor computes force parameters for nodeCount nodes in vp
func ParametersFor(nodeCount int, vp Viewport) Parameters {
	d := Density(nodeCount, vp)
	return Parameters{
		Density:      d,
		Repulsion:    RepulsionStrength(d),
		LinkDistance: LinkDistance(nodeCount),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
