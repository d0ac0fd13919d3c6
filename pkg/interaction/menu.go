// Package interaction turns pointer and keyboard input into drag pins,
// view transforms and context-menu transitions.
package interaction

import (
	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// MenuState is either MenuClosed or MenuOpen
type MenuState interface {
	isMenuState()
}

// MenuClosed means no context menu is shown
type MenuClosed struct{}

// MenuOpen is a context menu for one node, anchored at the screen
// coordinates of the click that opened it
type MenuOpen struct {
	NodeID   string
	NodeType graph.NodeType
	X, Y     float64
	Actions  []actions.Action
}

func (MenuClosed) isMenuState() {}
func (MenuOpen) isMenuState()   {}

// IsOpen reports whether s is an open menu
func IsOpen(s MenuState) bool {
	_, ok := s.(MenuOpen)
	return ok
}
