package visualization

import "math"

// The forces below follow the velocity-Verlet model of d3-force: each force
// adds to node velocities (scaled by alpha), and integration applies a
// velocity decay before moving unpinned nodes.

// distanceMin2 bounds repulsion for nearly coincident nodes
const distanceMin2 = 1.0

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

// applyLinks pulls linked nodes toward the link rest length. Strength is
// 1/min(degree) so hubs are not pulled apart by their many links.
func (s *Simulation) applyLinks(alpha float64) {
	distance := s.params.LinkDistance
	for _, l := range s.links {
		src, tgt := s.nodes[l.source], s.nodes[l.target]
		x := tgt.x + tgt.vx - src.x - src.vx
		if x == 0 {
			x = s.jiggle()
		}
		y := tgt.y + tgt.vy - src.y - src.vy
		if y == 0 {
			y = s.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		k := (d - distance) / d * alpha * l.strength
		x *= k
		y *= k
		tgt.vx -= x * l.bias
		tgt.vy -= y * l.bias
		src.vx += x * (1 - l.bias)
		src.vy += y * (1 - l.bias)
	}
}

// applyRepulsion is the pairwise many-body force. Strength is negative, so
// every pair pushes apart with magnitude inversely proportional to distance.
func (s *Simulation) applyRepulsion(alpha float64) {
	strength := s.params.Repulsion
	n := len(s.nodes)
	for i := 0; i < n; i++ {
		a := s.nodes[i]
		for j := i + 1; j < n; j++ {
			b := s.nodes[j]
			x := b.x - a.x
			y := b.y - a.y
			l := x*x + y*y
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := strength * alpha / l
			a.vx += x * w
			a.vy += y * w
			b.vx -= x * w
			b.vy -= y * w
		}
	}
}

// applyAxis weakly pulls every node toward the viewport's midlines
func (s *Simulation) applyAxis(alpha float64) {
	c := s.vp.Center()
	k := CenteringStrength * alpha
	for _, n := range s.nodes {
		n.vx += (c.X - n.x) * k
		n.vy += (c.Y - n.y) * k
	}
}

// applyCenter translates the whole layout so its mean sits on the viewport
// centre. It moves positions directly and does not touch velocities.
func (s *Simulation) applyCenter() {
	if len(s.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range s.nodes {
		sx += n.x
		sy += n.y
	}
	c := s.vp.Center()
	sx = sx/float64(len(s.nodes)) - c.X
	sy = sy/float64(len(s.nodes)) - c.Y
	for _, n := range s.nodes {
		n.x -= sx
		n.y -= sy
	}
}

// applyCollision separates nodes closer than their CollisionDistance using
// their predicted positions. Lighter nodes take more of the correction.
func (s *Simulation) applyCollision() {
	n := len(s.nodes)
	for i := 0; i < n; i++ {
		a := s.nodes[i]
		xi := a.x + a.vx
		yi := a.y + a.vy
		wi2 := a.weight * a.weight
		for j := i + 1; j < n; j++ {
			b := s.nodes[j]
			r := CollisionDistance(a.kind, b.kind)
			x := xi - b.x - b.vx
			y := yi - b.y - b.vy
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			d := math.Sqrt(l)
			k := (r - d) / d
			x *= k
			y *= k
			wj2 := b.weight * b.weight
			share := wj2 / (wi2 + wj2)
			a.vx += x * share
			a.vy += y * share
			b.vx -= x * (1 - share)
			b.vy -= y * (1 - share)
		}
	}
}
