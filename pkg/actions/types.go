// Package actions runs the per-node context-menu actions against the
// data-access service.
package actions

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

var (
	// ErrBusy is returned while another action is awaiting the data service
	ErrBusy = errors.New("another action is in progress")
	// ErrUnsupportedAction is returned for an action not offered for the node type
	ErrUnsupportedAction = errors.New("action not available for this node type")
)

// Kind identifies an action
type Kind string

const (
	ViewMetadata Kind = "view_metadata"
	Download     Kind = "download"
	ViewDetails  Kind = "view_details"
)

// Action is one context-menu entry
type Action struct {
	Kind  Kind
	Label string
}

var actionsByType = map[graph.NodeType][]Action{
	graph.TypeDocument: {
		{Kind: ViewMetadata, Label: "View metadata"},
		{Kind: Download, Label: "Download"},
	},
	graph.TypeOrder: {
		{Kind: ViewDetails, Label: "View details"},
	},
}

// ActionsFor lists the actions offered for nodes of type t
func ActionsFor(t graph.NodeType) []Action {
	return append([]Action(nil), actionsByType[t]...)
}

// Supports reports whether kind is offered for nodes of type t
func Supports(t graph.NodeType, kind Kind) bool {
	for _, a := range actionsByType[t] {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Target identifies the node an action runs against. It is a copy; actions
// never see the graph itself.
type Target struct {
	ID   string
	Type graph.NodeType
}

// Record is an opaque JSON object returned by the data service
type Record map[string]any

// DownloadLink is a time-limited URL for a document's file
type DownloadLink struct {
	URL       string    `json:"download_url" validate:"required,url"`
	Filename  string    `json:"filename" validate:"required"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DataService answers the three action endpoints
type DataService interface {
	GetDocumentMetadata(ctx context.Context, id string) (Record, error)
	GetDocumentDownloadLink(ctx context.Context, id string) (*DownloadLink, error)
	GetOrderDetail(ctx context.Context, id string) (Record, error)
}

// Field is one key/value row of a panel
type Field struct {
	Key   string
	Value string
}

// PanelContent is what the secondary surface shows after an action
type PanelContent struct {
	Title  string
	Fields []Field
	// Raw is the indented JSON body, offered for copy and save
	Raw  []byte
	Link *DownloadLink
}

// Panel is the secondary surface that displays action results
type Panel interface {
	Show(c PanelContent)
}

// Downloader hands a download link to the browser or file system
type Downloader interface {
	Download(ctx context.Context, link DownloadLink) error
}

// Status receives the loading overlay and error alert
type Status interface {
	SetLoading(loading bool)
	ShowError(msg string)
}

// Result is reported once an action completes, whether it failed or not
type Result struct {
	RequestID string
	Target    Target
	Action    Kind
	Content   *PanelContent
	Err       error
	// Message is the user-visible error text
	Message  string
	Duration time.Duration
}
