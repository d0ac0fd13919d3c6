// Package health reports whether the render server and its graph source
// are usable.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// NewChecker creates a checker with no checks registered
func NewChecker() *Checker {
	return &Checker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		started:     time.Now(),
		timeout:     DefaultCheckTimeout,
	}
}

// RegisterCheck registers a check reported by /health
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RegisterReadinessCheck registers a check reported by /health/ready
func (c *Checker) RegisterReadinessCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyChecks[name] = check
}

// Check runs every health check
func (c *Checker) Check(ctx context.Context) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run(ctx, c.checks)
}

// CheckReadiness runs the readiness checks
func (c *Checker) CheckReadiness(ctx context.Context) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run(ctx, c.readyChecks)
}

func (c *Checker) run(ctx context.Context, checks map[string]CheckFunc) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(c.started).Seconds(),
	}

	for name, fn := range checks {
		start := time.Now()
		check := fn(ctx)
		check.Duration = time.Since(start)
		check.LastChecked = start
		if check.Name == "" {
			check.Name = name
		}
		resp.Checks[name] = check

		// worst status wins
		switch {
		case check.Status == StatusUnhealthy:
			resp.Status = StatusUnhealthy
		case check.Status == StatusDegraded && resp.Status != StatusUnhealthy:
			resp.Status = StatusDegraded
		}
	}
	return resp
}

// HTTPHandler serves the health report. Degraded still answers 200.
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Check(r.Context())
		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, resp)
	}
}

// ReadinessHandler answers 200 only when every readiness check is healthy
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.CheckReadiness(r.Context())
		code := http.StatusOK
		if resp.Status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, resp)
	}
}

func writeResponse(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
