package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds a single check
const DefaultCheckTimeout = 5 * time.Second

// Check is the outcome of one component check
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc performs a check. It should return promptly once ctx is done.
type CheckFunc func(ctx context.Context) Check

// Checker runs the registered checks for the render server
type Checker struct {
	mu          sync.RWMutex
	checks      map[string]CheckFunc
	readyChecks map[string]CheckFunc
	started     time.Time
	timeout     time.Duration
}

// Response is the aggregated health report
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}
