package visualization

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

const (
	// InitialPinDuration is how long orders stay at their initial placement,
	// measured in simulated time (ticks x tick interval). Pins are released
	// on the first tick boundary at or after it, so the hold is exact only
	// when the tick interval divides it: 16ms ticks release at tick 63
	// (1008ms), 20ms ticks at tick 50 (1000ms).
	InitialPinDuration = 1000 * time.Millisecond

	DefaultTickInterval    = 16 * time.Millisecond
	DefaultEnergyThreshold = 0.01

	// DragAlphaTarget keeps the simulation warm while a node is dragged
	DragAlphaTarget = 0.3
	// ResizeAlpha is the temperature applied when the viewport changes
	ResizeAlpha = 0.3

	alphaMin      = 0.001
	velocityDecay = 0.4

	releaseSettleTicks = 30
)

var alphaDecay = 1 - math.Pow(alphaMin, 1.0/300)

// PinReleaseTick is the tick on which the initial order pins are released
// for the given tick interval
func PinReleaseTick(interval time.Duration) int {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return int((InitialPinDuration + interval - 1) / interval)
}

// Options tunes a Simulation. Zero values take defaults.
type Options struct {
	// TickInterval is the simulated time that passes per tick
	TickInterval time.Duration
	// EnergyThreshold is the mean kinetic energy per free node below which
	// the layout counts as settled
	EnergyThreshold float64
	// Seed drives the sub-pixel jiggle used to separate coincident nodes
	Seed uint64
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.EnergyThreshold <= 0 {
		o.EnergyThreshold = DefaultEnergyThreshold
	}
	return o
}

// simNode is one arena record. x, y, vx, vy are written only by the
// goroutine that ticks; pin is swapped atomically by interaction handlers.
type simNode struct {
	id     string
	kind   graph.NodeType
	x, y   float64
	vx, vy float64
	// weight decides how much of a collision correction this node takes
	weight float64
	pin    atomic.Pointer[Pin]
}

type simLink struct {
	source, target int
	strength, bias float64
}

// Simulation is the deterministic force solver for one snapshot.
//
// Tick, Frame, Converged and RunUntilSettled must be called from a single
// goroutine. Pin, Unpin, SetAlphaTarget, Reheat and Resize may be called
// from any goroutine; they take effect at the next tick.
type Simulation struct {
	opts   Options
	nodes  []*simNode
	index  map[string]int
	links  []simLink
	edges  []FrameEdge
	vp     Viewport
	params Parameters
	rng    *rand.Rand

	alpha         float64
	tick          int
	elapsed       time.Duration
	initialPinned bool
	releasedAt    int

	alphaTarget     atomic.Uint64 // float64 bits
	reheat          atomic.Uint64 // float64 bits, consumed by Tick
	pendingViewport atomic.Pointer[Viewport]
}

// NewSimulation builds the arena for a sanitized snapshot and applies the
// initial placement. Orders start pinned; documents start on a spiral
// around the viewport centre.
func NewSimulation(s *graph.Snapshot, vp Viewport, opts Options) *Simulation {
	opts = opts.withDefaults()
	sim := &Simulation{
		opts:  opts,
		nodes: make([]*simNode, 0, len(s.Nodes)),
		index: make(map[string]int, len(s.Nodes)),
		vp:    vp,
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		alpha: 1,
	}

	placement := InitialPlacement(s.Nodes, vp)
	center := vp.Center()
	unplaced := 0
	for _, n := range s.Nodes {
		if _, dup := sim.index[n.ID]; dup {
			continue
		}
		node := &simNode{id: n.ID, kind: n.Type, weight: CollisionDistance(n.Type, n.Type)}
		if p, ok := placement[n.ID]; ok {
			node.x, node.y = p.X, p.Y
			node.pin.Store(&Pin{X: p.X, Y: p.Y})
			sim.initialPinned = true
		} else {
			p := seedPosition(unplaced, center)
			unplaced++
			node.x, node.y = p.X, p.Y
		}
		sim.index[n.ID] = len(sim.nodes)
		sim.nodes = append(sim.nodes, node)
	}

	degree := make([]int, len(sim.nodes))
	for _, e := range s.Edges {
		si, okS := sim.index[e.Source]
		ti, okT := sim.index[e.Target]
		if !okS || !okT {
			continue
		}
		sim.edges = append(sim.edges, FrameEdge{Source: si, Target: ti, Type: e.Type})
		if si == ti {
			continue
		}
		degree[si]++
		degree[ti]++
		sim.links = append(sim.links, simLink{source: si, target: ti})
	}
	for i := range sim.links {
		l := &sim.links[i]
		ds, dt := float64(degree[l.source]), float64(degree[l.target])
		l.strength = 1 / math.Min(ds, dt)
		l.bias = ds / (ds + dt)
	}

	sim.params = ParametersFor(len(sim.nodes), vp)
	return sim
}

// Len returns the number of nodes in the arena
func (s *Simulation) Len() int { return len(s.nodes) }

// Parameters returns the force parameters currently in effect
func (s *Simulation) Parameters() Parameters { return s.params }

// Alpha returns the current temperature
func (s *Simulation) Alpha() float64 { return s.alpha }

// Elapsed returns the simulated time since the snapshot was loaded
func (s *Simulation) Elapsed() time.Duration { return s.elapsed }

// Tick advances the simulation by one step.
func (s *Simulation) Tick() {
	if vp := s.pendingViewport.Swap(nil); vp != nil {
		s.vp = *vp
		s.params = ParametersFor(len(s.nodes), *vp)
	}
	if r := math.Float64frombits(s.reheat.Swap(0)); r > s.alpha {
		s.alpha = r
	}

	s.tick++
	s.elapsed += s.opts.TickInterval
	if s.initialPinned && s.elapsed >= InitialPinDuration {
		s.releaseInitialPins()
	}

	target := math.Float64frombits(s.alphaTarget.Load())
	s.alpha += (target - s.alpha) * alphaDecay
	alpha := s.alpha

	s.applyLinks(alpha)
	s.applyRepulsion(alpha)
	s.applyAxis(alpha)
	s.applyCenter()
	s.applyCollision()

	decay := 1 - velocityDecay
	for _, n := range s.nodes {
		if p := n.pin.Load(); p != nil {
			n.x, n.y = p.X, p.Y
			n.vx, n.vy = 0, 0
			continue
		}
		n.vx *= decay
		n.vy *= decay
		n.x += n.vx
		n.y += n.vy
	}
}

// releaseInitialPins clears placement pins. Pins placed by a drag in the
// meantime are left alone.
func (s *Simulation) releaseInitialPins() {
	for _, n := range s.nodes {
		if p := n.pin.Load(); p != nil && !p.Drag {
			n.pin.CompareAndSwap(p, nil)
		}
	}
	s.initialPinned = false
	s.releasedAt = s.tick
}

// Converged reports whether the layout has settled. Once the initial pins
// are released and the layout had releaseSettleTicks to react, that is when
// the temperature fell below its floor or the mean kinetic energy of free
// nodes dropped below the threshold. A positive alpha target (a drag in
// progress) never counts as settled.
func (s *Simulation) Converged() bool {
	if math.Float64frombits(s.alphaTarget.Load()) > 0 {
		return false
	}
	if len(s.nodes) == 0 {
		return true
	}
	if s.initialPinned || s.tick < s.releasedAt+releaseSettleTicks {
		return false
	}
	return s.alpha < alphaMin || s.KineticEnergy() < s.opts.EnergyThreshold
}

// KineticEnergy is the mean of (vx²+vy²)/2 over unpinned nodes
func (s *Simulation) KineticEnergy() float64 {
	var sum float64
	free := 0
	for _, n := range s.nodes {
		if n.pin.Load() != nil {
			continue
		}
		sum += 0.5 * (n.vx*n.vx + n.vy*n.vy)
		free++
	}
	if free == 0 {
		return 0
	}
	return sum / float64(free)
}

// RunUntilSettled ticks until Converged or maxTicks is reached and returns
// the number of ticks taken.
func (s *Simulation) RunUntilSettled(maxTicks int) int {
	ticks := 0
	for ticks < maxTicks && !s.Converged() {
		s.Tick()
		ticks++
	}
	return ticks
}

// Pin fixes a node at (x, y) as a drag pin
func (s *Simulation) Pin(id string, x, y float64) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.nodes[i].pin.Store(&Pin{X: x, Y: y, Drag: true})
	return true
}

// Unpin releases any pin on the node
func (s *Simulation) Unpin(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.nodes[i].pin.Store(nil)
	return true
}

// PinOf returns the node's pin, if any
func (s *Simulation) PinOf(id string) (Pin, bool) {
	i, ok := s.index[id]
	if !ok {
		return Pin{}, false
	}
	if p := s.nodes[i].pin.Load(); p != nil {
		return *p, true
	}
	return Pin{}, false
}

// SetAlphaTarget sets the temperature the simulation decays toward
func (s *Simulation) SetAlphaTarget(a float64) {
	s.alphaTarget.Store(math.Float64bits(a))
}

// Reheat raises alpha to at least a on the next tick
func (s *Simulation) Reheat(a float64) {
	s.reheat.Store(math.Float64bits(a))
}

// Resize switches to a new viewport at the next tick and reheats
func (s *Simulation) Resize(vp Viewport) {
	if !vp.Valid() {
		return
	}
	s.pendingViewport.Store(&vp)
	s.Reheat(ResizeAlpha)
}

// DragStart pins the node where it currently is and warms the simulation.
// It reads the node position, so it must run on the ticking goroutine;
// Engine.DragStart is the cross-goroutine variant.
func (s *Simulation) DragStart(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	return s.DragStartAt(id, Position{X: s.nodes[i].x, Y: s.nodes[i].y})
}

// DragStartAt pins the node at pos and warms the simulation
func (s *Simulation) DragStartAt(id string, pos Position) bool {
	if !s.Pin(id, pos.X, pos.Y) {
		return false
	}
	s.SetAlphaTarget(DragAlphaTarget)
	return true
}

// DragMove moves the drag pin to the pointer position
func (s *Simulation) DragMove(id string, x, y float64) bool {
	return s.Pin(id, x, y)
}

// DragEnd releases the node back into the simulation
func (s *Simulation) DragEnd(id string) bool {
	s.SetAlphaTarget(0)
	return s.Unpin(id)
}

// Frame copies the current layout into an immutable Frame
func (s *Simulation) Frame(generation uint64) *Frame {
	f := &Frame{
		Generation: generation,
		Tick:       s.tick,
		Elapsed:    s.elapsed,
		Alpha:      s.alpha,
		Viewport:   s.vp,
		Nodes:      make([]NodePosition, len(s.nodes)),
		Edges:      s.edges,
	}
	for i, n := range s.nodes {
		f.Nodes[i] = NodePosition{
			ID:     n.id,
			Type:   n.kind,
			X:      n.x,
			Y:      n.y,
			Pinned: n.pin.Load() != nil,
		}
	}
	return f
}
