package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/interaction"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1E40AF")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#B91C1C")).
			Padding(0, 1)

	menuStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB")).
			Background(lipgloss.Color("#1F2937"))

	menuTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#374151"))

	menuSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#111827")).
				Background(lipgloss.Color("#F59E0B"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#60A5FA"))

	fieldKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Width(18)
)

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteByte('\n')

	body := m.canvas.View()
	if m.panelOpen {
		body = m.panel.View()
	}
	rows := max(m.height-chromeRows, 0)
	body = lipgloss.NewStyle().Height(rows).MaxHeight(rows).Render(body)
	if box, ok := m.menu(); ok {
		body = overlay(body, box.render(m.menuCursor), box.x, box.y-headerRows)
	}
	b.WriteString(body)
	b.WriteByte('\n')

	b.WriteString(m.footerLine())
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) titleLine() string {
	title := titleStyle.Render("Order graph · " + m.scope)
	right := statusStyle.Render(m.status)
	if m.loading {
		right = m.spinner.View() + " " + right
	}
	if t := m.renderer.Transform(); t.K != 1 {
		right += statusStyle.Render(fmt.Sprintf("  %.0f%%", t.K*100))
	}
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(right), 1)
	return title + strings.Repeat(" ", gap) + right
}

func (m *Model) footerLine() string {
	switch {
	case m.searching:
		return m.search.View()
	case m.alert != "":
		return alertStyle.Render(m.alert)
	case m.panelOpen:
		return statusStyle.Render("esc close · c copy · s save · ↑/↓ scroll")
	}

	if _, ok := m.controller.Menu().(interaction.MenuOpen); ok {
		return statusStyle.Render("1-9 or click an action · ↑/↓ enter · esc close")
	}
	return statusStyle.Render("click a node for actions · drag to move · wheel to zoom")
}

// panelBody renders the fields of an action result followed by its raw body
func panelBody(c actions.PanelContent) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render(c.Title))
	b.WriteString("\n\n")
	for _, f := range c.Fields {
		b.WriteString(fieldKeyStyle.Render(f.Key))
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	if len(c.Raw) > 0 {
		b.WriteByte('\n')
		b.WriteString(statusStyle.Render(string(c.Raw)))
	}
	return b.String()
}
