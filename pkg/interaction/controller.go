package interaction

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/render"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

// DefaultDragThreshold is how far, in screen pixels, the pointer may move
// between down and up for the gesture to still count as a click
const DefaultDragThreshold = 3.0

// ErrMenuClosed is returned by Invoke when no menu is open
var ErrMenuClosed = errors.New("no context menu is open")

// Layout receives drag pins. *visualization.Engine implements it.
type Layout interface {
	DragStart(id string) bool
	DragMove(id string, x, y float64) bool
	DragEnd(id string) bool
}

// View is the hit-testing and transform side of the renderer.
// *render.Renderer implements it.
type View interface {
	NodeAt(sx, sy float64) (string, bool)
	Node(id string) (graph.Node, bool)
	Transform() render.Transform
	Pan(dx, dy float64)
	ZoomIn()
	ZoomOut()
	ZoomAt(factor, sx, sy float64)
	ResetZoom()
	ShowTooltipFor(id string, sx, sy float64) bool
	HideTooltip()
}

// Dispatcher runs node actions. *actions.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, target actions.Target, kind actions.Kind, done func(actions.Result)) error
}

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureNode
	gesturePan
)

type gesture struct {
	kind         gestureKind
	nodeID       string
	startX       float64
	startY       float64
	lastX, lastY float64
	moved        bool
}

// Options tunes a Controller
type Options struct {
	DragThreshold float64
	// OnResult is called after an invoked action completes and the menu
	// has closed. It runs on the dispatcher goroutine.
	OnResult func(actions.Result)
	Logger   logging.Logger
}

// Controller is the pointer/keyboard state machine. All methods are safe
// for concurrent use, although input normally arrives on one goroutine.
type Controller struct {
	layout     Layout
	view       View
	dispatcher Dispatcher
	threshold  float64
	onResult   func(actions.Result)
	logger     logging.Logger

	mu      sync.Mutex
	menu    MenuState
	gesture gesture
}

// NewController wires input handling to a layout, a view and a dispatcher
func NewController(layout Layout, view View, dispatcher Dispatcher, opts Options) *Controller {
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Controller{
		layout:     layout,
		view:       view,
		dispatcher: dispatcher,
		threshold:  opts.DragThreshold,
		onResult:   opts.OnResult,
		logger:     opts.Logger.With(logging.Component("interaction")),
		menu:       MenuClosed{},
	}
}

// Menu returns the current menu state
func (c *Controller) Menu() MenuState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.menu
}

// Dragging reports whether a node is being dragged
func (c *Controller) Dragging() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gesture.kind == gestureNode && c.gesture.moved {
		return c.gesture.nodeID, true
	}
	return "", false
}

// PointerDown starts a gesture on the node under the pointer, or a pan on
// empty canvas
func (c *Controller) PointerDown(sx, sy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := gesture{kind: gesturePan, startX: sx, startY: sy, lastX: sx, lastY: sy}
	if id, ok := c.view.NodeAt(sx, sy); ok {
		g.kind = gestureNode
		g.nodeID = id
	}
	c.gesture = g
}

// PointerMove drags, pans or hovers depending on the gesture in progress
func (c *Controller) PointerMove(sx, sy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := &c.gesture
	switch g.kind {
	case gestureNone:
		if id, ok := c.view.NodeAt(sx, sy); ok {
			c.view.ShowTooltipFor(id, sx, sy)
		} else {
			c.view.HideTooltip()
		}

	case gestureNode:
		if !g.moved {
			if !c.beyondThreshold(sx, sy) {
				return
			}
			g.moved = true
			c.view.HideTooltip()
			if !c.layout.DragStart(g.nodeID) {
				c.logger.Debug("drag start ignored", logging.NodeID(g.nodeID))
			}
		}
		p := c.view.Transform().Invert(visualization.Position{X: sx, Y: sy})
		c.layout.DragMove(g.nodeID, p.X, p.Y)

	case gesturePan:
		if !g.moved && !c.beyondThreshold(sx, sy) {
			return
		}
		g.moved = true
		c.view.Pan(sx-g.lastX, sy-g.lastY)
		g.lastX, g.lastY = sx, sy
	}
}

func (c *Controller) beyondThreshold(sx, sy float64) bool {
	return math.Hypot(sx-c.gesture.startX, sy-c.gesture.startY) > c.threshold
}

// PointerUp ends the gesture. A node gesture that never passed the drag
// threshold is a click and opens that node's menu; a click on empty canvas
// closes any open menu.
func (c *Controller) PointerUp(sx, sy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.gesture
	c.gesture = gesture{}

	switch g.kind {
	case gestureNode:
		if g.moved {
			c.layout.DragEnd(g.nodeID)
			return
		}
		c.openLocked(g.nodeID, sx, sy)

	case gesturePan:
		if !g.moved {
			c.menu = MenuClosed{}
		}
	}
}

// PointerLeave cancels hover feedback
func (c *Controller) PointerLeave() {
	c.view.HideTooltip()
}

func (c *Controller) openLocked(id string, sx, sy float64) {
	n, ok := c.view.Node(id)
	if !ok {
		return
	}
	c.view.HideTooltip()
	c.menu = MenuOpen{
		NodeID:   id,
		NodeType: n.Type,
		X:        sx,
		Y:        sy,
		Actions:  actions.ActionsFor(n.Type),
	}
}

// CloseMenu closes any open menu
func (c *Controller) CloseMenu() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menu = MenuClosed{}
}

// Key handles keyboard input and reports whether the key was used
func (c *Controller) Key(k string) bool {
	switch k {
	case "esc", "escape":
		c.CloseMenu()
	case "+", "=":
		c.view.ZoomIn()
	case "-", "_":
		c.view.ZoomOut()
	case "0":
		c.view.ResetZoom()
	default:
		return false
	}
	return true
}

// Wheel zooms around the pointer; negative delta zooms in
func (c *Controller) Wheel(delta, sx, sy float64) {
	switch {
	case delta < 0:
		c.view.ZoomAt(render.ZoomFactor, sx, sy)
	case delta > 0:
		c.view.ZoomAt(1/render.ZoomFactor, sx, sy)
	}
}

// Invoke dispatches kind for the node of the open menu. The menu closes when
// the action completes, whether it succeeded or not. Errors from the
// dispatcher (busy, unsupported) leave the menu open.
func (c *Controller) Invoke(ctx context.Context, kind actions.Kind) error {
	c.mu.Lock()
	open, ok := c.menu.(MenuOpen)
	c.mu.Unlock()
	if !ok {
		return ErrMenuClosed
	}

	target := actions.Target{ID: open.NodeID, Type: open.NodeType}
	return c.dispatcher.Dispatch(ctx, target, kind, func(res actions.Result) {
		c.mu.Lock()
		if cur, ok := c.menu.(MenuOpen); ok && cur.NodeID == open.NodeID {
			c.menu = MenuClosed{}
		}
		c.mu.Unlock()
		if c.onResult != nil {
			c.onResult(res)
		}
	})
}
