package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/dd0wney/cluso-orderviz/pkg/interaction"
	"github.com/dd0wney/cluso-orderviz/pkg/render"
)

// menuBox is the context menu drawn over the canvas next to the click that
// opened it. x and y are screen cells; row 0 is the title, actions follow.
type menuBox struct {
	x, y  int
	width int
	title string
	items []string
}

// layoutMenu anchors the menu one cell right of the clicked cell, shifted
// back inside the canvas when it would overflow
func layoutMenu(open interaction.MenuOpen, cols, canvasRows int) menuBox {
	box := menuBox{title: fmt.Sprintf(" %s %s ", open.NodeType, open.NodeID)}
	box.width = lipgloss.Width(box.title)
	for i, a := range open.Actions {
		item := fmt.Sprintf(" %d %s ", i+1, a.Label)
		box.items = append(box.items, item)
		box.width = max(box.width, lipgloss.Width(item))
	}

	col := int(math.Floor(open.X/render.CellWidth)) + 1
	row := int(math.Floor(open.Y/render.CellHeight)) + headerRows
	height := len(box.items) + 1

	box.x = max(min(col, cols-box.width), 0)
	box.y = max(min(row, headerRows+canvasRows-height), headerRows)
	return box
}

// itemAt returns the action under screen cell (x, y)
func (b menuBox) itemAt(x, y int) (int, bool) {
	i := y - b.y - 1
	if x < b.x || x >= b.x+b.width || i < 0 || i >= len(b.items) {
		return 0, false
	}
	return i, true
}

func (b menuBox) contains(x, y int) bool {
	return x >= b.x && x < b.x+b.width && y >= b.y && y <= b.y+len(b.items)
}

// render returns the styled menu lines, each b.width cells wide
func (b menuBox) render(cursor int) []string {
	pad := func(s string) string {
		return s + strings.Repeat(" ", b.width-lipgloss.Width(s))
	}
	lines := []string{menuTitleStyle.Render(pad(b.title))}
	for i, item := range b.items {
		st := menuStyle
		if i == cursor {
			st = menuSelectedStyle
		}
		lines = append(lines, st.Render(pad(item)))
	}
	return lines
}

// overlay draws fg over bg with its top-left corner at (x, y)
func overlay(bg string, fg []string, x, y int) string {
	lines := strings.Split(bg, "\n")
	for i, l := range fg {
		row := y + i
		if row < 0 || row >= len(lines) {
			continue
		}
		line := lines[row]
		left := ansi.Truncate(line, x, "")
		if w := ansi.StringWidth(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		right := ansi.TruncateLeft(line, x+ansi.StringWidth(l), "")
		lines[row] = left + ansi.ResetStyle + l + right
	}
	return strings.Join(lines, "\n")
}

// menu returns the layout of the open menu, if any
func (m *Model) menu() (menuBox, bool) {
	open, ok := m.controller.Menu().(interaction.MenuOpen)
	if !ok || m.panelOpen {
		return menuBox{}, false
	}
	return layoutMenu(open, m.width, max(m.height-chromeRows, 0)), true
}
