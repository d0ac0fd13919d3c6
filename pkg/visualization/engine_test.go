package visualization

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/graph/graphtest"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
)

// recordingSink keeps every delivered frame
type recordingSink struct {
	mu     sync.Mutex
	frames []*Frame
}

func (s *recordingSink) OnFrame(f *Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []*Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Frame(nil), s.frames...)
}

func (s *recordingSink) waitFor(t *testing.T, cond func(*Frame) bool) *Frame {
	t.Helper()
	return s.waitFrom(t, 0, cond)
}

// waitFrom waits for a frame at index from or later satisfying cond
func (s *recordingSink) waitFrom(t *testing.T, from int, cond func(*Frame) bool) *Frame {
	t.Helper()
	var found *Frame
	require.Eventually(t, func() bool {
		frames := s.snapshot()
		if from > len(frames) {
			return false
		}
		for _, f := range frames[from:] {
			if cond(f) {
				found = f
				return true
			}
		}
		return false
	}, 3*time.Second, 2*time.Millisecond)
	return found
}

func fixedViewport(vp Viewport) ViewportFunc {
	return func() Viewport { return vp }
}

func fastOptions() EngineOptions {
	return EngineOptions{
		Simulation:            Options{TickInterval: time.Millisecond},
		ViewportRetryDelay:    time.Millisecond,
		ViewportRetryAttempts: 5,
	}
}

func TestEngineDeliversFrames(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(sink, fixedViewport(testViewport), fastOptions(), nil, metrics.NewRegistry())
	defer e.Stop()

	gen := e.Load(context.Background(), graphtest.ThreeOrders())
	f := sink.waitFor(t, func(f *Frame) bool { return !f.Empty() })

	assert.Equal(t, gen, f.Generation)
	assert.Len(t, f.Nodes, 9)
	assert.Len(t, f.Edges, 9)
	assert.Equal(t, testViewport, f.Viewport)
}

func TestEngineZeroNodesEmitsOneEmptyFrame(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(sink, fixedViewport(testViewport), fastOptions(), nil, nil)
	defer e.Stop()

	e.Load(context.Background(), &graph.Snapshot{})
	sink.waitFor(t, func(f *Frame) bool { return true })

	time.Sleep(20 * time.Millisecond)
	frames := sink.snapshot()
	require.Len(t, frames, 1)
	assert.True(t, frames[0].Empty())
}

func TestEngineSanitizesBeforeLayout(t *testing.T) {
	snap := graphtest.ThreeOrders()
	snap.Edges = append(snap.Edges, graph.Edge{Source: "ORD-1", Target: "missing"})
	snap.Nodes = append(snap.Nodes, graph.Node{ID: "", Type: graph.TypeOrder})

	sink := &recordingSink{}
	reg := metrics.NewRegistry()
	e := NewEngine(sink, fixedViewport(testViewport), fastOptions(), nil, reg)
	defer e.Stop()

	e.Load(context.Background(), snap)
	f := sink.waitFor(t, func(f *Frame) bool { return !f.Empty() })
	assert.Len(t, f.Nodes, 9)
	assert.Len(t, f.Edges, 9)
}

func TestEngineDefersUntilViewportAvailable(t *testing.T) {
	var calls atomic.Int32
	viewport := func() Viewport {
		if calls.Add(1) < 3 {
			return Viewport{}
		}
		return testViewport
	}

	sink := &recordingSink{}
	e := NewEngine(sink, viewport, fastOptions(), nil, nil)
	defer e.Stop()

	e.Load(context.Background(), graphtest.ThreeOrders())
	f := sink.waitFor(t, func(f *Frame) bool { return !f.Empty() })
	assert.Equal(t, testViewport, f.Viewport)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestEngineGivesUpWhenViewportNeverAppears(t *testing.T) {
	var calls atomic.Int32
	viewport := func() Viewport {
		calls.Add(1)
		return Viewport{Width: 0, Height: 600}
	}

	sink := &recordingSink{}
	e := NewEngine(sink, viewport, fastOptions(), nil, nil)
	defer e.Stop()

	e.Load(context.Background(), graphtest.ThreeOrders())
	f := sink.waitFor(t, func(*Frame) bool { return true })
	assert.True(t, f.Empty())

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.snapshot(), 1)
	assert.Equal(t, int32(6), calls.Load(), "one check plus five retries")
}

func TestEngineDropsStaleGenerations(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(sink, fixedViewport(testViewport), fastOptions(), nil, nil)
	defer e.Stop()

	first := e.Load(context.Background(), graphtest.ThreeOrders())
	sink.waitFor(t, func(f *Frame) bool { return f.Generation == first })

	second := e.Load(context.Background(), graphtest.Orders(4))
	require.Greater(t, second, first)
	cut := len(sink.snapshot())

	sink.waitFor(t, func(f *Frame) bool { return f.Generation == second })
	for _, f := range sink.snapshot()[cut:] {
		assert.Equal(t, second, f.Generation)
		assert.Len(t, f.Nodes, 4)
	}
}

func TestEngineStopIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(sink, fixedViewport(testViewport), fastOptions(), nil, nil)

	e.Load(context.Background(), graphtest.ThreeOrders())
	sink.waitFor(t, func(f *Frame) bool { return !f.Empty() })

	e.Stop()
	e.Stop()
	count := len(sink.snapshot())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, len(sink.snapshot()), "frames delivered after Stop")
	assert.Nil(t, e.LastFrame())
	assert.False(t, e.DragStart("ORD-1"))
}

func TestEngineStopsWithContext(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(sink, fixedViewport(testViewport), fastOptions(), nil, nil)
	defer e.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	e.Load(ctx, graphtest.ThreeOrders())
	sink.waitFor(t, func(f *Frame) bool { return !f.Empty() })
	cancel()

	require.Eventually(t, func() bool {
		n := len(sink.snapshot())
		time.Sleep(10 * time.Millisecond)
		return n == len(sink.snapshot())
	}, time.Second, time.Millisecond)
}

func TestEngineDrag(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(sink, fixedViewport(testViewport), fastOptions(), nil, nil)
	defer e.Stop()

	e.Load(context.Background(), graphtest.ThreeOrders())
	sink.waitFor(t, func(f *Frame) bool { return !f.Empty() })

	require.True(t, e.DragStart("DOC-2-1"))
	require.True(t, e.DragMove("DOC-2-1", 10, 20))

	sink.waitFor(t, func(f *Frame) bool {
		for _, n := range f.Nodes {
			if n.ID == "DOC-2-1" {
				return n.Pinned && n.X == 10 && n.Y == 20
			}
		}
		return false
	})

	require.True(t, e.DragEnd("DOC-2-1"))
	sink.waitFrom(t, len(sink.snapshot()), func(f *Frame) bool {
		for _, n := range f.Nodes {
			if n.ID == "DOC-2-1" {
				return !n.Pinned
			}
		}
		return false
	})
}

func TestEngineResumesAfterSettling(t *testing.T) {
	sink := &recordingSink{}
	opts := fastOptions()
	e := NewEngine(sink, fixedViewport(Viewport{Width: 300, Height: 300}), opts, nil, nil)
	defer e.Stop()

	e.Load(context.Background(), graphtest.Orders(2))

	// settled when no new frames arrive for a while
	require.Eventually(t, func() bool {
		n := len(sink.snapshot())
		time.Sleep(30 * time.Millisecond)
		return n > 0 && n == len(sink.snapshot())
	}, 5*time.Second, time.Millisecond)

	before := len(sink.snapshot())
	e.Resize(Viewport{Width: 600, Height: 600})
	f := sink.waitFrom(t, before, func(f *Frame) bool { return f.Viewport.Width == 600 })
	assert.NotNil(t, f)
	assert.Greater(t, len(sink.snapshot()), before)
}
