// Package api serves converged layouts and SVG renderings of order graphs.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-orderviz/pkg/health"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/visualization"
)

const (
	DefaultMaxTicks             = 2000
	DefaultMaxConcurrentLayouts = 4
	DefaultWidth                = 1200.0
	DefaultHeight               = 800.0
	// maxDimension bounds width and height query overrides
	maxDimension = 10000.0
)

// NewServer creates a render server. cfg.Loader must be set.
func NewServer(cfg Config) *Server {
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = DefaultMaxTicks
	}
	if cfg.MaxConcurrentLayouts <= 0 {
		cfg.MaxConcurrentLayouts = DefaultMaxConcurrentLayouts
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Health == nil {
		cfg.Health = health.NewChecker()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		loader:    cfg.Loader,
		simOpts:   cfg.Simulation,
		maxTicks:  cfg.MaxTicks,
		viewport:  visualization.Viewport{Width: cfg.Width, Height: cfg.Height},
		auth:      cfg.Auth,
		health:    cfg.Health,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With(logging.Component("api")),
		version:   cfg.Version,
		startTime: time.Now(),
		layoutSem: make(chan struct{}, cfg.MaxConcurrentLayouts),
	}

	s.health.RegisterCheck("layout", health.LayoutCheck(s.ActiveLayouts, cfg.MaxConcurrentLayouts))
	s.health.RegisterCheck("memory", health.MemoryCheck())
	return s
}

// ActiveLayouts returns the number of layouts being computed
func (s *Server) ActiveLayouts() int { return int(s.activeJobs.Load()) }

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /graphs/{scope}/layout", s.protect(http.HandlerFunc(s.handleLayout)))
	mux.Handle("GET /graphs/{file}", s.protect(http.HandlerFunc(s.handleSVG)))

	mux.HandleFunc("GET /health", s.health.HTTPHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	mux.HandleFunc("GET /version", s.handleVersion)

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	return s.panicRecoveryMiddleware(s.loggingMiddleware(s.metricsMiddleware(mux)))
}

func (s *Server) protect(h http.Handler) http.Handler {
	if s.auth == nil {
		return h
	}
	return s.auth.RequireToken(h)
}

// UpdateMetricsPeriodically refreshes system gauges until done is closed
func (s *Server) UpdateMetricsPeriodically(done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		s.metrics.UpdateSystemMetrics(s.startTime)
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
