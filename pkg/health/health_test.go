package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func healthy(context.Context) Check  { return Check{Status: StatusHealthy} }
func degraded(context.Context) Check { return Check{Status: StatusDegraded} }
func failing(context.Context) Check  { return Check{Status: StatusUnhealthy, Message: "down"} }

func TestChecker_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", map[string]CheckFunc{"a": healthy, "b": healthy}, StatusHealthy},
		{"one degraded", map[string]CheckFunc{"a": healthy, "b": degraded}, StatusDegraded},
		{"unhealthy beats degraded", map[string]CheckFunc{"a": failing, "b": degraded}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}
			resp := c.Check(context.Background())
			if resp.Status != tt.want {
				t.Errorf("status = %s, want %s", resp.Status, tt.want)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("got %d checks, want %d", len(resp.Checks), len(tt.checks))
			}
			for name, check := range resp.Checks {
				if check.Name != name {
					t.Errorf("check name = %q, want %q", check.Name, name)
				}
			}
		})
	}
}

func TestHTTPHandlers(t *testing.T) {
	c := NewChecker()
	c.RegisterCheck("layout", degraded)
	c.RegisterReadinessCheck("source", failing)

	rec := httptest.NewRecorder()
	c.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 for degraded", rec.Code)
	}
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("body status = %s", resp.Status)
	}

	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/health/ready status = %d, want 503", rec.Code)
	}
}

func TestPingAndOptionalChecks(t *testing.T) {
	boom := func(context.Context) error { return errors.New("connection refused") }
	ok := func(context.Context) error { return nil }

	if got := PingCheck("source", ok)(context.Background()); got.Status != StatusHealthy {
		t.Errorf("ping ok = %s", got.Status)
	}
	got := PingCheck("source", boom)(context.Background())
	if got.Status != StatusUnhealthy || got.Message != "connection refused" {
		t.Errorf("ping failing = %+v", got)
	}

	if got := OptionalCheck("s3", false, boom)(context.Background()); got.Status != StatusHealthy {
		t.Errorf("unconfigured = %s", got.Status)
	}
	if got := OptionalCheck("s3", true, boom)(context.Background()); got.Status != StatusDegraded {
		t.Errorf("configured failing = %s", got.Status)
	}
	if got := OptionalCheck("s3", true, nil)(context.Background()); got.Message != "Configured" {
		t.Errorf("configured without ping = %+v", got)
	}
}

func TestLayoutCheck(t *testing.T) {
	n := 3
	check := LayoutCheck(func() int { return n }, 4)
	if got := check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("below limit = %s", got.Status)
	}
	n = 4
	if got := check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("at limit = %s", got.Status)
	}
}

func TestMemoryCheck(t *testing.T) {
	got := MemoryCheck()(context.Background())
	if got.Name != "memory" {
		t.Errorf("name = %q", got.Name)
	}
	if _, ok := got.Details["goroutines"]; !ok {
		t.Error("missing goroutines detail")
	}
}

func TestCertificateCheck(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name     string
		notAfter time.Time
		want     Status
	}{
		{"fresh", now.Add(60 * 24 * time.Hour), StatusHealthy},
		{"expiring", now.Add(3 * 24 * time.Hour), StatusDegraded},
		{"expired", now.Add(-time.Hour), StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CertificateCheck(tt.notAfter, 14*24*time.Hour, clock)(context.Background())
			if got.Status != tt.want {
				t.Errorf("status = %s, want %s (%s)", got.Status, tt.want, got.Message)
			}
		})
	}
}
