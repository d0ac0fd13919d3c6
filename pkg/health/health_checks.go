package health

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// PingCheck reports a dependency reachable through ping
func PingCheck(name string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: name}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// OptionalCheck reports a dependency the server can run without. An
// unconfigured dependency is healthy; a failing one only degrades.
func OptionalCheck(name string, configured bool, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: name, Status: StatusHealthy}
		switch {
		case !configured:
			check.Message = "Not configured"
		case ping == nil:
			check.Message = "Configured"
		default:
			if err := ping(ctx); err != nil {
				check.Status = StatusDegraded
				check.Message = err.Error()
			} else {
				check.Message = "Reachable"
			}
		}
		return check
	}
}

// LayoutCheck reports running simulations. Too many at once degrades.
func LayoutCheck(active func() int, limit int) CheckFunc {
	return func(context.Context) Check {
		n := active()
		check := Check{
			Name:    "layout",
			Status:  StatusHealthy,
			Details: map[string]any{"active_simulations": n, "limit": limit},
		}
		if limit > 0 && n >= limit {
			check.Status = StatusDegraded
			check.Message = "Layout capacity exhausted"
		}
		return check
	}
}

// MemoryCheck reports heap usage relative to memory obtained from the OS
func MemoryCheck() CheckFunc {
	return func(context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Name:   "memory",
			Status: StatusHealthy,
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
				"goroutines":  runtime.NumGoroutine(),
			},
		}
		if m.Sys > 0 && float64(m.Alloc)/float64(m.Sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}

// CertificateCheck degrades as the serving certificate nears expiry and
// fails once it has expired
func CertificateCheck(notAfter time.Time, warnBefore time.Duration, now func() time.Time) CheckFunc {
	if now == nil {
		now = time.Now
	}
	return func(context.Context) Check {
		left := notAfter.Sub(now())
		check := Check{
			Name:    "tls",
			Status:  StatusHealthy,
			Details: map[string]any{"expires_at": notAfter.UTC().Format(time.RFC3339)},
		}
		switch {
		case left <= 0:
			check.Status = StatusUnhealthy
			check.Message = "Certificate expired"
		case left < warnBefore:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Certificate expires in %s", left.Round(time.Hour))
		}
		return check
	}
}
