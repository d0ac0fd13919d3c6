// Package tui is the interactive terminal viewer: the graph is drawn on a
// character canvas and driven with the mouse and keyboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/audit"
	"github.com/dd0wney/cluso-orderviz/pkg/graph"
	"github.com/dd0wney/cluso-orderviz/pkg/interaction"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/render"
	"github.com/dd0wney/cluso-orderviz/pkg/source"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

// chromeRows is the title bar plus the status line and the help line
const (
	headerRows = 1
	footerRows = 2
	chromeRows = headerRows + footerRows
)

// Options configures the viewer
type Options struct {
	Loader        source.Loader
	Scope         string
	Service       actions.DataService
	Engine        visualization.EngineOptions
	DragThreshold float64
	// DownloadDir receives downloaded documents and saved panel bodies
	DownloadDir string
	Logger      logging.Logger
	Metrics     *metrics.Registry
	// Audit, when set, records every completed node action
	Audit audit.Logger
}

type graphLoadedMsg struct{ snap *graph.Snapshot }

type loadFailedMsg struct{ err error }

// Model is the bubbletea model of the viewer
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	loader     source.Loader
	scope      string
	logger     logging.Logger
	bridge     *bridge
	canvas     *render.CanvasSurface
	renderer   *render.Renderer
	engine     *visualization.Engine
	dispatcher *actions.Dispatcher
	controller *interaction.Controller
	saveDir    string

	// pixel size of the canvas, read by the engine goroutine
	pxWidth  atomic.Uint64
	pxHeight atomic.Uint64

	keys       keyMap
	help       help.Model
	spinner    spinner.Model
	search     textinput.Model
	searching  bool
	panel      viewport.Model
	panelOpen  bool
	content    actions.PanelContent
	menuCursor int

	width, height int
	loading       bool
	alert         string
	status        string
	orders, docs  int
	closed        bool
}

// New builds the viewer and its layout, render and action pipeline
func New(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	ctx, cancel := context.WithCancel(ctx)

	m := &Model{
		ctx:     ctx,
		cancel:  cancel,
		loader:  opts.Loader,
		scope:   opts.Scope,
		logger:  opts.Logger.With(logging.Component("tui")),
		bridge:  newBridge(ctx),
		canvas:  render.NewCanvasSurface(0, 0),
		saveDir: opts.DownloadDir,
		keys:    keys,
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		panel:   viewport.New(0, 0),
	}

	m.search = textinput.New()
	m.search.Placeholder = "order or document id / label"
	m.search.CharLimit = 64
	m.search.Prompt = "/ "

	m.renderer = render.NewRenderer(m.canvas, "canvas", opts.Logger, opts.Metrics)
	m.engine = visualization.NewEngine(m.bridge.sink(m.renderer), m.viewport, opts.Engine, opts.Logger, opts.Metrics)
	dispatchOpts := []actions.DispatcherOption{
		actions.WithLogger(opts.Logger),
		actions.WithMetrics(opts.Metrics),
		actions.WithDownloader(&FileDownloader{Dir: opts.DownloadDir}),
	}
	if opts.Audit != nil {
		dispatchOpts = append(dispatchOpts, actions.WithAudit(opts.Audit))
	}
	m.dispatcher = actions.NewDispatcher(opts.Service, m.bridge, m.bridge, dispatchOpts...)
	m.controller = interaction.NewController(m.engine, m.renderer, m.dispatcher, interaction.Options{
		DragThreshold: opts.DragThreshold,
		Logger:        opts.Logger,
		OnResult: func(res actions.Result) {
			m.bridge.send(resultMsg{res: res})
		},
	})
	return m
}

// viewport reports the canvas size in layout pixels, zero until the first
// window size message
func (m *Model) viewport() visualization.Viewport {
	return visualization.Viewport{
		Width:  float64(m.pxWidth.Load()),
		Height: float64(m.pxHeight.Load()),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadGraph(),
		m.bridge.waitForFrame(),
		m.bridge.waitForEvent(),
		m.spinner.Tick,
	)
}

func (m *Model) loadGraph() tea.Cmd {
	loader, scope, ctx := m.loader, m.scope, m.ctx
	return func() tea.Msg {
		snap, err := loader.LoadGraph(ctx, scope)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return graphLoadedMsg{snap: snap}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case graphLoadedMsg:
		m.orders, m.docs = msg.snap.CountByType()
		m.renderer.SetGraph(msg.snap)
		m.controller.CloseMenu()
		m.engine.Load(m.ctx, msg.snap)
		m.status = fmt.Sprintf("%d orders, %d documents", m.orders, m.docs)
		return m, nil

	case loadFailedMsg:
		if errors.Is(msg.err, source.ErrScopeNotFound) {
			m.alert = fmt.Sprintf("No orders found for %q", m.scope)
		} else {
			m.alert = "Failed to load graph: " + msg.err.Error()
		}
		m.logger.Error("graph load failed", logging.Scope(m.scope), logging.Error(msg.err))
		return m, nil

	case frameMsg:
		return m, m.bridge.waitForFrame()

	case panelMsg:
		m.openPanel(msg.content)
		return m, m.bridge.waitForEvent()

	case loadingMsg:
		m.loading = bool(msg)
		return m, m.bridge.waitForEvent()

	case alertMsg:
		m.alert = string(msg)
		return m, m.bridge.waitForEvent()

	case resultMsg:
		m.menuCursor = 0
		return m, m.bridge.waitForEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	rows := max(height-chromeRows, 0)
	m.canvas.Resize(width, rows)
	m.panel.Width = width
	m.panel.Height = rows

	m.pxWidth.Store(uint64(float64(width) * render.CellWidth))
	m.pxHeight.Store(uint64(float64(rows) * render.CellHeight))
	m.engine.Resize(m.viewport())
}

// cellToPixel maps a terminal cell to the screen pixel at its centre
func cellToPixel(x, y int) (float64, float64) {
	return (float64(x) + 0.5) * render.CellWidth, (float64(y-headerRows) + 0.5) * render.CellHeight
}

func (m *Model) inCanvas(y int) bool {
	return y >= headerRows && y < m.height-footerRows
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.panelOpen {
		m.panel, _ = m.panel.Update(msg)
		return
	}

	leftPress := msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft
	if box, ok := m.menu(); ok && leftPress && box.contains(msg.X, msg.Y) {
		if i, ok := box.itemAt(msg.X, msg.Y); ok {
			m.invoke(i)
		}
		return
	}

	if !m.inCanvas(msg.Y) {
		if msg.Action == tea.MouseActionMotion {
			m.controller.PointerLeave()
		}
		return
	}

	sx, sy := cellToPixel(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.controller.Wheel(-1, sx, sy)
		case tea.MouseButtonWheelDown:
			m.controller.Wheel(1, sx, sy)
		case tea.MouseButtonLeft:
			m.alert = ""
			m.controller.PointerDown(sx, sy)
		}
	case tea.MouseActionMotion:
		m.controller.PointerMove(sx, sy)
	case tea.MouseActionRelease:
		m.controller.PointerUp(sx, sy)
		m.menuCursor = 0
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.searching {
		switch msg.Type {
		case tea.KeyEnter:
			n := m.renderer.Highlight(m.search.Value())
			m.status = fmt.Sprintf("%d nodes highlighted", n)
			m.searching = false
			m.search.Blur()
			return m, nil
		case tea.KeyEsc:
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	if m.panelOpen {
		return m, m.handlePanelKey(msg)
	}

	m.alert = ""
	open, menuOpen := m.controller.Menu().(interaction.MenuOpen)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue("")
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Fit):
		m.renderer.Fit()
	case key.Matches(msg, m.keys.Reload):
		m.status = "reloading"
		return m, m.loadGraph()
	case menuOpen && key.Matches(msg, m.keys.Up):
		m.menuCursor = (m.menuCursor + len(open.Actions) - 1) % len(open.Actions)
	case menuOpen && key.Matches(msg, m.keys.Down):
		m.menuCursor = (m.menuCursor + 1) % len(open.Actions)
	case menuOpen && key.Matches(msg, m.keys.Enter):
		m.invoke(m.menuCursor)
	case menuOpen && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9':
		m.invoke(int(msg.Runes[0] - '1'))
	default:
		m.controller.Key(msg.String())
	}
	return m, nil
}

func (m *Model) handlePanelKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
		m.panelOpen = false
		m.content = actions.PanelContent{}
	case key.Matches(msg, m.keys.Copy):
		text := string(m.content.Raw)
		if m.content.Link != nil {
			text = m.content.Link.URL
		}
		if err := clipboard.WriteAll(text); err != nil {
			m.alert = "Copy failed: " + err.Error()
		} else {
			m.status = "copied to clipboard"
		}
	case key.Matches(msg, m.keys.Save):
		path, err := m.savePanel()
		if err != nil {
			m.alert = "Save failed: " + err.Error()
		} else {
			m.status = "saved " + path
		}
	default:
		var cmd tea.Cmd
		m.panel, cmd = m.panel.Update(msg)
		return cmd
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// savePanel writes the panel's raw body as <title>.json
func (m *Model) savePanel() (string, error) {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(m.content.Title), "-"), "-")
	if name == "" {
		name = "panel"
	}
	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(m.saveDir, name+".json")
	return path, os.WriteFile(path, m.content.Raw, 0o644)
}

func (m *Model) invoke(i int) {
	open, ok := m.controller.Menu().(interaction.MenuOpen)
	if !ok || i < 0 || i >= len(open.Actions) {
		return
	}
	err := m.controller.Invoke(m.ctx, open.Actions[i].Kind)
	switch {
	case errors.Is(err, actions.ErrBusy):
		m.alert = "Another action is in progress"
	case err != nil:
		m.alert = err.Error()
	}
}

func (m *Model) openPanel(c actions.PanelContent) {
	m.content = c
	m.panelOpen = true
	m.panel.SetContent(panelBody(c))
	m.panel.GotoTop()
}

// Close stops the layout loop, waits for in-flight actions and clears the
// canvas. It is safe to call more than once.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.cancel()
	m.engine.Stop()
	m.dispatcher.Wait()
	m.renderer.Close()
}
