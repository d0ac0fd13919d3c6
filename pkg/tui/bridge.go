package tui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

type (
	frameMsg   struct{}
	panelMsg   struct{ content actions.PanelContent }
	loadingMsg bool
	alertMsg   string
	resultMsg  struct{ res actions.Result }
)

// bridge carries events from the layout and dispatcher goroutines into the
// bubbletea loop. It implements actions.Panel and actions.Status.
type bridge struct {
	ctx    context.Context
	events chan tea.Msg
	frames chan struct{}
}

func newBridge(ctx context.Context) *bridge {
	return &bridge{
		ctx:    ctx,
		events: make(chan tea.Msg, 32),
		frames: make(chan struct{}, 1),
	}
}

func (b *bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.ctx.Done():
	}
}

func (b *bridge) Show(c actions.PanelContent) { b.send(panelMsg{content: c}) }
func (b *bridge) SetLoading(loading bool)     { b.send(loadingMsg(loading)) }
func (b *bridge) ShowError(msg string)        { b.send(alertMsg(msg)) }

// notifyFrame never blocks; a pending notification already covers this frame
func (b *bridge) notifyFrame() {
	select {
	case b.frames <- struct{}{}:
	default:
	}
}

// sink draws f with draw and then wakes the UI
func (b *bridge) sink(draw visualization.FrameSink) visualization.FrameSink {
	return visualization.FrameSinkFunc(func(f *visualization.Frame) {
		draw.OnFrame(f)
		b.notifyFrame()
	})
}

func (b *bridge) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.ctx.Done():
			return nil
		}
	}
}

func (b *bridge) waitForFrame() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.frames:
			return frameMsg{}
		case <-b.ctx.Done():
			return nil
		}
	}
}

// FileDownloader saves linked files into a directory
type FileDownloader struct {
	Dir    string
	Client *http.Client
}

var _ actions.Downloader = (*FileDownloader)(nil)

// Download fetches link.URL into Dir/<filename>
func (d *FileDownloader) Download(ctx context.Context, link actions.DownloadLink) error {
	name := filepath.Base(link.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid filename %q", link.Filename)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
