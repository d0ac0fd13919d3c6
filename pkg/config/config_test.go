package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/logging"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Layout.TickInterval != 16*time.Millisecond {
		t.Errorf("tick interval = %v, want 16ms", cfg.Layout.TickInterval)
	}
	if cfg.Layout.ViewportRetryAttempts != 40 || cfg.Layout.ViewportRetryDelay != 50*time.Millisecond {
		t.Errorf("viewport retry = %d x %v", cfg.Layout.ViewportRetryAttempts, cfg.Layout.ViewportRetryDelay)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "orderviz.yaml", `
layout:
  tick_interval: 20ms
  drag_threshold: 5
source:
  driver: sqlite
  dsn: /tmp/graph.db
dataservice:
  base_url: https://docs.example.com/api
  token_secret: 0123456789abcdef0123456789abcdef
  s3:
    bucket: order-documents
    region: ap-southeast-2
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Layout.TickInterval != 20*time.Millisecond {
		t.Errorf("tick interval = %v", cfg.Layout.TickInterval)
	}
	if cfg.Layout.DragThreshold != 5 {
		t.Errorf("drag threshold = %v", cfg.Layout.DragThreshold)
	}
	if cfg.Layout.EnergyThreshold != 0.01 {
		t.Errorf("energy threshold default lost: %v", cfg.Layout.EnergyThreshold)
	}
	if cfg.Source.Driver != "sqlite" || cfg.Source.DSN != "/tmp/graph.db" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.DataService.S3.Bucket != "order-documents" || cfg.DataService.S3.LinkTTL != 15*time.Minute {
		t.Errorf("s3 = %+v", cfg.DataService.S3)
	}
	if cfg.LogLevel() != logging.DebugLevel {
		t.Errorf("log level = %v", cfg.LogLevel())
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "orderviz.toml", `
[source]
driver = "postgres"
dsn = "postgres://viz@localhost/orders"

[server]
port = 9090
shutdown_timeout = "5s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Source.Driver)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"unknown extension", "c.json", `{}`, "unsupported config format"},
		{"bad yaml", "c.yaml", "layout: [", "parsing"},
		{"bad driver", "c.yaml", "source:\n  driver: mongo\n", "Driver"},
		{"short secret", "c.yaml", "dataservice:\n  token_secret: short\n", "at least 32"},
		{"bad url", "c.yaml", "dataservice:\n  base_url: not-a-url\n", "base_url"},
		{"bad port", "c.toml", "[server]\nport = 70000\n", "server.port"},
		{"bad level", "c.yaml", "log:\n  level: loud\n", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ORDERVIZ_TICK_INTERVAL":  "32ms",
		"ORDERVIZ_SOURCE_DRIVER":  "sqlite",
		"ORDERVIZ_SOURCE_DSN":     " graph.db ",
		"ORDERVIZ_PORT":           "9000",
		"ORDERVIZ_DRAG_THRESHOLD": "4.5",
		"ORDERVIZ_S3_BUCKET":      "docs",
		"ORDERVIZ_LOG_FILE":       "",
		"ORDERVIZ_AUDIT_FILE":     "audit/actions.jsonl",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if cfg.Layout.TickInterval != 32*time.Millisecond {
		t.Errorf("tick = %v", cfg.Layout.TickInterval)
	}
	if cfg.Source.DSN != "graph.db" {
		t.Errorf("dsn = %q", cfg.Source.DSN)
	}
	if cfg.Server.Port != 9000 || cfg.Layout.DragThreshold != 4.5 {
		t.Errorf("port=%d drag=%v", cfg.Server.Port, cfg.Layout.DragThreshold)
	}
	if cfg.DataService.S3.Bucket != "docs" {
		t.Errorf("bucket = %q", cfg.DataService.S3.Bucket)
	}
	if cfg.Log.File != "" {
		t.Errorf("empty variable should not override, got %q", cfg.Log.File)
	}
	if cfg.Log.AuditFile != "audit/actions.jsonl" {
		t.Errorf("audit file = %q", cfg.Log.AuditFile)
	}

	env = map[string]string{"ORDERVIZ_PORT": "eighty", "ORDERVIZ_TICK_INTERVAL": "soon"}
	err := Default().applyEnv(lookup)
	if err == nil {
		t.Fatal("expected parse errors")
	}
	for _, want := range []string{"ORDERVIZ_PORT", "ORDERVIZ_TICK_INTERVAL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadUsesEnvironment(t *testing.T) {
	t.Setenv("ORDERVIZ_PORT", "8181")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("port = %d, want 8181", cfg.Server.Port)
	}
}

func TestTLSSettings(t *testing.T) {
	env := map[string]string{
		"ORDERVIZ_TLS_CERT_FILE": "server.crt",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if cfg.Server.TLS.Enabled() {
		t.Fatal("TLS should be off by default")
	}
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "server.tls.key_file") {
		t.Errorf("Validate() = %v, want missing key file", err)
	}

	env = map[string]string{"ORDERVIZ_TLS_SELF_SIGNED": "true"}
	cfg = Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if !cfg.Server.TLS.Enabled() {
		t.Error("self-signed should enable TLS")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	env = map[string]string{"ORDERVIZ_TLS_SELF_SIGNED": "maybe"}
	if err := Default().applyEnv(lookup); err == nil {
		t.Error("expected bool parse error")
	}
}
