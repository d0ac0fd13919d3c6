package visualization

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/graph/graphtest"
)

const epsilon = 1e-9

func TestGridDimensions(t *testing.T) {
	tests := []struct {
		count      int
		cols, rows int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{9, 3, 3},
		{10, 4, 3},
		{50, 8, 7},
		{64, 8, 8},
		{65, 9, 8},
	}

	for _, tt := range tests {
		cols, rows := GridDimensions(tt.count)
		if cols != tt.cols || rows != tt.rows {
			t.Errorf("GridDimensions(%d) = %dx%d, want %dx%d", tt.count, cols, rows, tt.cols, tt.rows)
		}
	}
}

func TestInitialPlacementThreeOrdersOnCircle(t *testing.T) {
	snap := graphtest.ThreeOrders()
	vp := Viewport{Width: 800, Height: 600}

	positions := InitialPlacement(snap.Nodes, vp)
	if len(positions) != 3 {
		t.Fatalf("placed %d nodes, want 3 (orders only)", len(positions))
	}

	center := vp.Center()
	radius := 0.3 * 600.0
	wantAngles := map[string]float64{"ORD-1": 0, "ORD-2": 120, "ORD-3": 240}

	for id, want := range wantAngles {
		p, ok := positions[id]
		if !ok {
			t.Fatalf("%s not placed", id)
		}
		dx, dy := p.X-center.X, p.Y-center.Y
		if r := math.Hypot(dx, dy); math.Abs(r-radius) > 1e-6 {
			t.Errorf("%s radius = %v, want %v", id, r, radius)
		}
		angle := math.Atan2(dy, dx) * 180 / math.Pi
		if angle < 0 {
			angle += 360
		}
		if math.Abs(angle-want) > 1e-6 {
			t.Errorf("%s angle = %v, want %v", id, angle, want)
		}
	}

	for _, n := range snap.Nodes {
		if n.Type == graph.TypeDocument {
			if _, ok := positions[n.ID]; ok {
				t.Errorf("document %s should not be placed", n.ID)
			}
		}
	}
}

func TestInitialPlacementFiftyOrdersOnGrid(t *testing.T) {
	snap := graphtest.Orders(50)
	vp := Viewport{Width: 1000, Height: 800}

	positions := InitialPlacement(snap.Nodes, vp)
	if len(positions) != 50 {
		t.Fatalf("placed %d nodes, want 50", len(positions))
	}

	xs := map[float64]bool{}
	ys := map[float64]bool{}
	for id, p := range positions {
		if p.X < 100 || p.X > 900 || p.Y < 80 || p.Y > 720 {
			t.Errorf("%s at (%v, %v) outside the 80%% placement area", id, p.X, p.Y)
		}
		xs[math.Round(p.X*1e6)/1e6] = true
		ys[math.Round(p.Y*1e6)/1e6] = true
	}
	if len(xs) != 8 {
		t.Errorf("distinct columns = %d, want 8", len(xs))
	}
	if len(ys) != 7 {
		t.Errorf("distinct rows = %d, want 7", len(ys))
	}

	first := positions["ORD-1"]
	if math.Abs(first.X-150) > epsilon || math.Abs(first.Y-(80+320.0/7)) > epsilon {
		t.Errorf("ORD-1 at (%v, %v), want the centre of the first cell", first.X, first.Y)
	}
}

func TestInitialPlacementIsIdempotent(t *testing.T) {
	snap := graphtest.Orders(12)
	vp := Viewport{Width: 1024, Height: 768}

	a := InitialPlacement(snap.Nodes, vp)
	b := InitialPlacement(snap.Nodes, vp)
	for id, p := range a {
		if b[id] != p {
			t.Errorf("%s placed at %v then %v", id, p, b[id])
		}
	}
}

func TestInitialPlacementInvalidViewport(t *testing.T) {
	snap := graphtest.Orders(3)
	for _, vp := range []Viewport{{}, {Width: 100}, {Width: -1, Height: 10}, {Width: math.NaN(), Height: 10}} {
		if got := InitialPlacement(snap.Nodes, vp); len(got) != 0 {
			t.Errorf("InitialPlacement(%v) placed %d nodes, want 0", vp, len(got))
		}
	}
}

func TestSeedPositionsAreDistinct(t *testing.T) {
	center := Position{X: 500, Y: 400}
	seen := map[Position]bool{}
	for i := 0; i < 200; i++ {
		p := seedPosition(i, center)
		if seen[p] {
			t.Fatalf("seed position %d repeats %v", i, p)
		}
		seen[p] = true
	}
}
