package visualization

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
)

const (
	DefaultViewportRetryDelay    = 50 * time.Millisecond
	DefaultViewportRetryAttempts = 40
)

// EngineOptions configures an Engine. Zero values take defaults.
type EngineOptions struct {
	Simulation Options
	// ViewportRetryDelay is the pause between viewport checks while the
	// host surface has no size
	ViewportRetryDelay time.Duration
	// ViewportRetryAttempts bounds the number of re-checks after the first
	ViewportRetryAttempts int
}

func (o EngineOptions) withDefaults() EngineOptions {
	o.Simulation = o.Simulation.withDefaults()
	if o.ViewportRetryDelay <= 0 {
		o.ViewportRetryDelay = DefaultViewportRetryDelay
	}
	if o.ViewportRetryAttempts <= 0 {
		o.ViewportRetryAttempts = DefaultViewportRetryAttempts
	}
	return o
}

// Engine owns the frame-scheduled simulation loop for the currently loaded
// snapshot. At most one loop runs at a time; Load replaces it.
type Engine struct {
	sink     FrameSink
	viewport ViewportFunc
	opts     EngineOptions
	logger   logging.Logger
	metrics  *metrics.Registry

	mu     sync.Mutex // serializes Load and Stop
	cancel context.CancelFunc
	done   chan struct{}

	generation atomic.Uint64
	sim        atomic.Pointer[Simulation]
	lastFrame  atomic.Pointer[Frame]
	wake       chan struct{}
}

// NewEngine creates an engine delivering frames to sink. logger and reg may
// be nil.
func NewEngine(sink FrameSink, viewport ViewportFunc, opts EngineOptions, logger logging.Logger, reg *metrics.Registry) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		sink:     sink,
		viewport: viewport,
		opts:     opts.withDefaults(),
		logger:   logger.With(logging.Component("layout")),
		metrics:  reg,
		wake:     make(chan struct{}, 1),
	}
}

// Load sanitizes snapshot, stops any running loop and starts a new one. It
// returns the generation assigned to the new loop. Frames of earlier
// generations are never delivered once Load returns.
func (e *Engine) Load(ctx context.Context, snapshot *graph.Snapshot) uint64 {
	clean, report := graph.Sanitize(snapshot)
	e.recordReport(report)

	e.mu.Lock()
	defer e.mu.Unlock()

	gen := e.generation.Add(1)
	e.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	orders, documents := clean.CountByType()
	e.logger.Info("loading graph",
		logging.Generation(gen),
		logging.Int("orders", orders),
		logging.Int("documents", documents),
		logging.Int("edges", len(clean.Edges)),
	)

	go e.run(loopCtx, gen, clean, done)
	return gen
}

func (e *Engine) recordReport(r graph.Report) {
	if r.Dropped() == 0 {
		return
	}
	e.logger.Debug("dropped invalid snapshot entries",
		logging.Int("malformed_nodes", r.MalformedNodes),
		logging.Int("duplicate_nodes", r.DuplicateNodes),
		logging.Int("malformed_edges", r.MalformedEdges),
		logging.Int("dangling_edges", r.DanglingEdges),
	)
	e.metrics.RecordDropped("malformed_node", r.MalformedNodes)
	e.metrics.RecordDropped("duplicate_node", r.DuplicateNodes)
	e.metrics.RecordDropped("malformed_edge", r.MalformedEdges)
	e.metrics.RecordDropped("dangling_edge", r.DanglingEdges)
}

func (e *Engine) run(ctx context.Context, gen uint64, snap *graph.Snapshot, done chan struct{}) {
	defer close(done)
	log := e.logger.With(logging.Generation(gen))
	orders, documents := snap.CountByType()

	if len(snap.Nodes) == 0 {
		e.metrics.RecordLoad("empty", 0, 0, 0)
		e.deliver(&Frame{Generation: gen})
		return
	}

	vp, ok := e.awaitViewport(ctx)
	if !ok {
		if ctx.Err() == nil {
			log.Warn("viewport never became available, nothing rendered",
				logging.Count(e.opts.ViewportRetryAttempts))
			e.metrics.RecordLoad("viewport_unavailable", orders, documents, len(snap.Edges))
			e.deliver(&Frame{Generation: gen})
		}
		return
	}

	sim := NewSimulation(snap, vp, e.opts.Simulation)
	e.sim.Store(sim)
	defer e.sim.CompareAndSwap(sim, nil)

	e.metrics.RecordLoad("started", orders, documents, len(snap.Edges))
	e.metrics.SimulationStarted()
	defer e.metrics.SimulationStopped()

	p := sim.Parameters()
	log.Debug("simulation started",
		logging.Viewport(vp.Width, vp.Height),
		logging.Float64("density", p.Density),
		logging.Float64("repulsion", p.Repulsion),
		logging.Float64("link_distance", p.LinkDistance),
	)

	ticker := time.NewTicker(e.opts.Simulation.TickInterval)
	defer ticker.Stop()

	settled := false
	for {
		if settled {
			select {
			case <-ctx.Done():
				return
			case <-e.wake:
				settled = false
				log.Debug("simulation resumed", logging.Tick(sim.tick))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		start := time.Now()
		sim.Tick()
		e.metrics.RecordTick(sim.Alpha(), time.Since(start))
		e.deliver(sim.Frame(gen))

		if sim.Converged() {
			settled = true
			e.metrics.RecordConvergence(sim.tick)
			log.Debug("simulation settled",
				logging.Tick(sim.tick),
				logging.Float64("alpha", sim.Alpha()),
				logging.Float64("energy", sim.KineticEnergy()),
			)
		}
	}
}

// awaitViewport polls the viewport provider with a fixed delay until it
// reports a usable size or the attempts run out.
func (e *Engine) awaitViewport(ctx context.Context) (Viewport, bool) {
	for attempt := 0; ; attempt++ {
		if e.viewport != nil {
			if vp := e.viewport(); vp.Valid() {
				return vp, true
			}
		}
		if attempt >= e.opts.ViewportRetryAttempts {
			return Viewport{}, false
		}
		e.metrics.RecordViewportRetry()

		timer := time.NewTimer(e.opts.ViewportRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Viewport{}, false
		case <-timer.C:
		}
	}
}

func (e *Engine) deliver(f *Frame) {
	if f.Generation != e.generation.Load() {
		return
	}
	e.lastFrame.Store(f)
	if e.sink != nil {
		e.sink.OnFrame(f)
	}
}

func (e *Engine) resume() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Generation returns the generation of the most recent Load or Stop
func (e *Engine) Generation() uint64 { return e.generation.Load() }

// LastFrame returns the most recently delivered frame, or nil
func (e *Engine) LastFrame() *Frame {
	f := e.lastFrame.Load()
	if f == nil || f.Generation != e.generation.Load() {
		return nil
	}
	return f
}

// Resize switches the running simulation to vp and reheats it
func (e *Engine) Resize(vp Viewport) {
	sim := e.sim.Load()
	if sim == nil || !vp.Valid() {
		return
	}
	sim.Resize(vp)
	e.resume()
	e.logger.Debug("viewport resized", logging.Viewport(vp.Width, vp.Height))
}

// DragStart pins id at its last rendered position and reheats
func (e *Engine) DragStart(id string) bool {
	sim := e.sim.Load()
	if sim == nil {
		return false
	}
	pos, ok := e.LastFrame().Position(id)
	if !ok {
		return false
	}
	if !sim.DragStartAt(id, pos) {
		return false
	}
	e.resume()
	return true
}

// DragMove moves the drag pin of id to (x, y) in layout space
func (e *Engine) DragMove(id string, x, y float64) bool {
	sim := e.sim.Load()
	if sim == nil {
		return false
	}
	if !sim.DragMove(id, x, y) {
		return false
	}
	e.resume()
	return true
}

// DragEnd releases id back into the simulation
func (e *Engine) DragEnd(id string) bool {
	sim := e.sim.Load()
	if sim == nil {
		return false
	}
	ok := sim.DragEnd(id)
	e.resume()
	return ok
}

// Stop halts the loop and waits for it to exit. It is idempotent, and no
// frame is delivered after it returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation.Add(1)
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
	e.sim.Store(nil)
	select {
	case <-e.wake:
	default:
	}
}
