package visualization

import (
	"math"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

const (
	// CircleLayoutMax is the largest order count placed on a circle;
	// larger counts go on a grid.
	CircleLayoutMax = 8

	circleRadiusRatio = 0.3
	gridMarginRatio   = 0.1

	phyllotaxisRadius = 10.0
)

var phyllotaxisAngle = math.Pi * (3 - math.Sqrt(5))

// GridDimensions returns the grid used for count order nodes:
// columns = ceil(sqrt(count)), rows = ceil(count/columns).
func GridDimensions(count int) (columns, rows int) {
	if count <= 0 {
		return 0, 0
	}
	columns = int(math.Ceil(math.Sqrt(float64(count))))
	rows = int(math.Ceil(float64(count) / float64(columns)))
	return columns, rows
}

// InitialPlacement computes starting positions for order nodes only.
// Documents are left out and settle under the simulation. The result is a
// pure function of the node order and viewport.
func InitialPlacement(nodes []graph.Node, vp Viewport) map[string]Position {
	orders := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == graph.TypeOrder {
			orders = append(orders, n.ID)
		}
	}

	positions := make(map[string]Position, len(orders))
	if len(orders) == 0 || !vp.Valid() {
		return positions
	}

	if len(orders) <= CircleLayoutMax {
		placeOnCircle(orders, vp, positions)
	} else {
		placeOnGrid(orders, vp, positions)
	}
	return positions
}

func placeOnCircle(ids []string, vp Viewport, out map[string]Position) {
	center := vp.Center()
	radius := circleRadiusRatio * math.Min(vp.Width, vp.Height)
	step := 2 * math.Pi / float64(len(ids))

	for i, id := range ids {
		angle := float64(i) * step
		out[id] = Position{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
}

func placeOnGrid(ids []string, vp Viewport, out map[string]Position) {
	columns, rows := GridDimensions(len(ids))
	left := vp.Width * gridMarginRatio
	top := vp.Height * gridMarginRatio
	cellW := vp.Width * (1 - 2*gridMarginRatio) / float64(columns)
	cellH := vp.Height * (1 - 2*gridMarginRatio) / float64(rows)

	for i, id := range ids {
		col := i % columns
		row := i / columns
		out[id] = Position{
			X: left + (float64(col)+0.5)*cellW,
			Y: top + (float64(row)+0.5)*cellH,
		}
	}
}

// seedPosition places the i-th unplaced node on a phyllotaxis spiral around
// center, giving documents distinct deterministic starting points.
func seedPosition(i int, center Position) Position {
	r := phyllotaxisRadius * math.Sqrt(0.5+float64(i))
	a := float64(i) * phyllotaxisAngle
	return Position{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
}

func isBad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
