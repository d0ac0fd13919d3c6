package api

import (
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/auth"
	"github.com/dd0wney/cluso-orderviz/pkg/health"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/source"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

// Config wires a Server to its collaborators
type Config struct {
	Loader source.Loader
	// Simulation tunes server-side layouts; TickInterval only scales the
	// initial pin duration since no ticker runs.
	Simulation visualization.Options
	MaxTicks   int
	Width      float64
	Height     float64
	// MaxConcurrentLayouts bounds simulations running at once
	MaxConcurrentLayouts int
	// Auth protects the graph routes when set
	Auth    *auth.JWTManager
	Health  *health.Checker
	Metrics *metrics.Registry
	Logger  logging.Logger
	Version string
}

// Server renders graph snapshots over HTTP
type Server struct {
	loader     source.Loader
	simOpts    visualization.Options
	maxTicks   int
	viewport   visualization.Viewport
	auth       *auth.JWTManager
	health     *health.Checker
	metrics    *metrics.Registry
	logger     logging.Logger
	version    string
	startTime  time.Time
	layoutSem  chan struct{}
	activeJobs atomic.Int32
}

// LayoutResponse is the body of GET /graphs/{scope}/layout
type LayoutResponse struct {
	Scope      string                   `json:"scope"`
	Ticks      int                      `json:"ticks"`
	Converged  bool                     `json:"converged"`
	Parameters visualization.Parameters `json:"parameters"`
	Dropped    DroppedInputs            `json:"dropped"`
	Frame      *visualization.Frame     `json:"frame"`
}

// DroppedInputs counts what sanitizing removed from the snapshot
type DroppedInputs struct {
	MalformedNodes int `json:"malformed_nodes"`
	DuplicateNodes int `json:"duplicate_nodes"`
	MalformedEdges int `json:"malformed_edges"`
	DanglingEdges  int `json:"dangling_edges"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
