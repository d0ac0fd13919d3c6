package render

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// A terminal cell covers CellWidth x CellHeight layout pixels
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

var (
	edgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	tooltipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(lipgloss.Color("#1F2937"))

	tooltipTitleStyle = tooltipStyle.
				Bold(true)
)

type cell struct {
	r     rune
	style *lipgloss.Style
}

// CanvasSurface draws the scene onto a grid of terminal cells styled with
// lipgloss. View returns the last flushed grid.
type CanvasSurface struct {
	cols, rows int

	edges     []EdgeSegment
	nodes     []NodeGlyph
	transform Transform
	tooltip   *Tooltip

	mu     sync.RWMutex
	view   string
	closed bool
}

// NewCanvasSurface creates a canvas of cols x rows cells
func NewCanvasSurface(cols, rows int) *CanvasSurface {
	return &CanvasSurface{cols: cols, rows: rows, transform: Identity()}
}

// Resize changes the grid size used by the next Flush
func (c *CanvasSurface) Resize(cols, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cols, c.rows = cols, rows
}

func (c *CanvasSurface) DrawEdges(edges []EdgeSegment) { c.edges = edges }
func (c *CanvasSurface) DrawNodes(nodes []NodeGlyph)   { c.nodes = nodes }
func (c *CanvasSurface) ApplyTransform(t Transform)    { c.transform = t }
func (c *CanvasSurface) ShowTooltip(t Tooltip)         { c.tooltip = &t }
func (c *CanvasSurface) HideTooltip()                  { c.tooltip = nil }

// toCell maps a layout position to a cell through the transform
func (c *CanvasSurface) toCell(x, y float64) (int, int) {
	sx := x*c.transform.K + c.transform.X
	sy := y*c.transform.K + c.transform.Y
	return int(math.Floor(sx / CellWidth)), int(math.Floor(sy / CellHeight))
}

// Flush rasterizes the scene
func (c *CanvasSurface) Flush() error {
	c.mu.RLock()
	cols, rows := c.cols, c.rows
	c.mu.RUnlock()
	if cols <= 0 || rows <= 0 {
		return nil
	}

	grid := make([][]cell, rows)
	for y := range grid {
		grid[y] = make([]cell, cols)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}
	set := func(x, y int, r rune, st *lipgloss.Style) {
		if x >= 0 && x < cols && y >= 0 && y < rows {
			grid[y][x] = cell{r: r, style: st}
		}
	}
	text := func(x, y int, s string, st *lipgloss.Style) {
		for i, r := range []rune(s) {
			set(x+i, y, r, st)
		}
	}

	for _, e := range c.edges {
		x0, y0 := c.toCell(e.X1, e.Y1)
		x1, y1 := c.toCell(e.X2, e.Y2)
		drawLine(x0, y0, x1, y1, func(x, y int) { set(x, y, '·', &edgeStyle) })
	}

	for _, n := range c.nodes {
		st := lipgloss.NewStyle().Foreground(lipgloss.Color(n.Style.Fill))
		if n.Style.StrokeWidth > documentStyle.StrokeWidth {
			st = st.Bold(true)
		}
		x, y := c.toCell(n.X, n.Y)
		set(x, y, n.Style.Glyph, &st)

		_, ly := c.toCell(n.X, n.Y+n.Style.LabelOffset)
		if ly == y {
			ly = y + 1
		}
		label := []rune(n.Label)
		text(x-len(label)/2, ly, n.Label, &labelStyle)
	}

	if t := c.tooltip; t != nil {
		// tooltips are anchored in screen space
		x := int(math.Floor(t.X / CellWidth))
		y := int(math.Floor(t.Y / CellHeight))
		lines := []string{" " + t.Title + " "}
		for _, l := range t.Lines {
			lines = append(lines, " "+l.Key+": "+l.Value+" ")
		}
		width := 0
		for _, l := range lines {
			width = max(width, len([]rune(l)))
		}
		for i, l := range lines {
			st := &tooltipStyle
			if i == 0 {
				st = &tooltipTitleStyle
			}
			text(x, y+i, l+strings.Repeat(" ", width-len([]rune(l))), st)
		}
	}

	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteByte('\n')
		}
		writeRow(&b, row)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.view = b.String()
	}
	return nil
}

// writeRow renders runs of equally styled cells with one lipgloss call each
func writeRow(b *strings.Builder, row []cell) {
	start := 0
	for i := 1; i <= len(row); i++ {
		if i < len(row) && row[i].style == row[start].style {
			continue
		}
		var run strings.Builder
		for _, c := range row[start:i] {
			run.WriteRune(c.r)
		}
		if st := row[start].style; st != nil {
			b.WriteString(st.Render(run.String()))
		} else {
			b.WriteString(run.String())
		}
		start = i
	}
}

// drawLine plots the cells between two points with Bresenham's algorithm,
// leaving out both endpoints where the nodes sit.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	errAcc := dx + dy
	x, y := x0, y0
	for steps := 0; steps < 4096; steps++ {
		if x == x1 && y == y1 {
			return
		}
		if !(x == x0 && y == y0) {
			plot(x, y)
		}
		e2 := 2 * errAcc
		if e2 >= dy {
			errAcc += dy
			x += sx
		}
		if e2 <= dx {
			errAcc += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// View returns the last flushed grid
func (c *CanvasSurface) View() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *CanvasSurface) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.view = ""
	return nil
}
