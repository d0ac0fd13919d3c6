// Package config loads orderviz settings from a YAML or TOML file and
// ORDERVIZ_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/validation"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ORDERVIZ_"

// Config is the full application configuration
type Config struct {
	Layout      LayoutConfig      `yaml:"layout" toml:"layout"`
	Source      SourceConfig      `yaml:"source" toml:"source"`
	DataService DataServiceConfig `yaml:"dataservice" toml:"dataservice"`
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

// LayoutConfig tunes the simulation and pointer handling
type LayoutConfig struct {
	TickInterval          time.Duration `yaml:"tick_interval" toml:"tick_interval"`
	EnergyThreshold       float64       `yaml:"energy_threshold" toml:"energy_threshold"`
	ViewportRetryDelay    time.Duration `yaml:"viewport_retry_delay" toml:"viewport_retry_delay"`
	ViewportRetryAttempts int           `yaml:"viewport_retry_attempts" toml:"viewport_retry_attempts"`
	DragThreshold         float64       `yaml:"drag_threshold" toml:"drag_threshold"`
	// MaxTicks bounds RunUntilSettled for server-side layouts
	MaxTicks int `yaml:"max_ticks" toml:"max_ticks"`
}

// SourceConfig selects where snapshots come from
type SourceConfig struct {
	Driver string `yaml:"driver" toml:"driver" validate:"required,oneof=file postgres sqlite"`
	DSN    string `yaml:"dsn" toml:"dsn" validate:"required"`
}

// DataServiceConfig locates the data-access service and document store
type DataServiceConfig struct {
	BaseURL     string        `yaml:"base_url" toml:"base_url"`
	TokenSecret string        `yaml:"token_secret" toml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl" toml:"token_ttl"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
	S3          S3Config      `yaml:"s3" toml:"s3"`
}

// S3Config enables presigned download links when Bucket is set
type S3Config struct {
	Bucket          string        `yaml:"bucket" toml:"bucket"`
	Region          string        `yaml:"region" toml:"region"`
	Prefix          string        `yaml:"prefix" toml:"prefix"`
	Endpoint        string        `yaml:"endpoint" toml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string        `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key" toml:"secret_access_key"`
	LinkTTL         time.Duration `yaml:"link_ttl" toml:"link_ttl"`
}

// ServerConfig configures the render server
type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	// AuthSecret turns on bearer-token auth for graph routes when set
	AuthSecret string  `yaml:"auth_secret" toml:"auth_secret"`
	Width      float64   `yaml:"width" toml:"width"`
	Height     float64   `yaml:"height" toml:"height"`
	TLS        TLSConfig `yaml:"tls" toml:"tls"`
}

// TLSConfig serves HTTPS from a certificate pair, or from a generated
// self-signed certificate when SelfSigned is set
type TLSConfig struct {
	CertFile   string   `yaml:"cert_file" toml:"cert_file"`
	KeyFile    string   `yaml:"key_file" toml:"key_file"`
	SelfSigned bool     `yaml:"self_signed" toml:"self_signed"`
	Hosts      []string `yaml:"hosts" toml:"hosts"`
}

// Enabled reports whether the server should speak TLS
func (t TLSConfig) Enabled() bool {
	return t.SelfSigned || t.CertFile != "" || t.KeyFile != ""
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	// File receives logs instead of stderr; the TUI needs it
	File string `yaml:"file" toml:"file"`
	// AuditFile is the hash-chained record of node actions
	AuditFile string `yaml:"audit_file" toml:"audit_file"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			TickInterval:          16 * time.Millisecond,
			EnergyThreshold:       0.01,
			ViewportRetryDelay:    50 * time.Millisecond,
			ViewportRetryAttempts: 40,
			DragThreshold:         3,
			MaxTicks:              2000,
		},
		Source: SourceConfig{
			Driver: "file",
			DSN:    "./graphs",
		},
		DataService: DataServiceConfig{
			TokenTTL: 15 * time.Minute,
			Timeout:  30 * time.Second,
			S3: S3Config{
				LinkTTL: 15 * time.Minute,
			},
		},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			Width:           1200,
			Height:          800,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, cfg)
		case ".toml":
			_, err = toml.Decode(string(data), cfg)
		default:
			return nil, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", ext)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from ORDERVIZ_* variables
func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.duration("TICK_INTERVAL", &c.Layout.TickInterval)
	e.float("ENERGY_THRESHOLD", &c.Layout.EnergyThreshold)
	e.duration("VIEWPORT_RETRY_DELAY", &c.Layout.ViewportRetryDelay)
	e.int("VIEWPORT_RETRY_ATTEMPTS", &c.Layout.ViewportRetryAttempts)
	e.float("DRAG_THRESHOLD", &c.Layout.DragThreshold)
	e.int("MAX_TICKS", &c.Layout.MaxTicks)

	e.string("SOURCE_DRIVER", &c.Source.Driver)
	e.string("SOURCE_DSN", &c.Source.DSN)

	e.string("DATASERVICE_URL", &c.DataService.BaseURL)
	e.string("DATASERVICE_TOKEN_SECRET", &c.DataService.TokenSecret)
	e.duration("DATASERVICE_TOKEN_TTL", &c.DataService.TokenTTL)
	e.duration("DATASERVICE_TIMEOUT", &c.DataService.Timeout)
	e.string("S3_BUCKET", &c.DataService.S3.Bucket)
	e.string("S3_REGION", &c.DataService.S3.Region)
	e.string("S3_PREFIX", &c.DataService.S3.Prefix)
	e.string("S3_ENDPOINT", &c.DataService.S3.Endpoint)
	e.string("S3_ACCESS_KEY_ID", &c.DataService.S3.AccessKeyID)
	e.string("S3_SECRET_ACCESS_KEY", &c.DataService.S3.SecretAccessKey)
	e.duration("S3_LINK_TTL", &c.DataService.S3.LinkTTL)

	e.int("PORT", &c.Server.Port)
	e.duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	e.string("AUTH_SECRET", &c.Server.AuthSecret)
	e.string("TLS_CERT_FILE", &c.Server.TLS.CertFile)
	e.string("TLS_KEY_FILE", &c.Server.TLS.KeyFile)
	e.bool("TLS_SELF_SIGNED", &c.Server.TLS.SelfSigned)

	e.string("LOG_LEVEL", &c.Log.Level)
	e.string("LOG_FILE", &c.Log.File)
	e.string("AUDIT_FILE", &c.Log.AuditFile)

	if len(e.errs) > 0 {
		return fmt.Errorf("environment: %s", strings.Join(e.errs, "; "))
	}
	return nil
}

type envReader struct {
	lookup lookupFunc
	errs   []string
}

func (e *envReader) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (e *envReader) string(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) int(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
		return
	}
	*dst = n
}

func (e *envReader) bool(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
		return
	}
	*dst = b
}

func (e *envReader) float(name string, dst *float64) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
		return
	}
	*dst = f
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
		return
	}
	*dst = d
}

// Validate checks ranges and cross-field rules
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return validation.NewConfigValidator("config").
		RangeDuration("layout.tick_interval", c.Layout.TickInterval, time.Millisecond, time.Second).
		PositiveFloat("layout.energy_threshold", c.Layout.EnergyThreshold).
		RangeDuration("layout.viewport_retry_delay", c.Layout.ViewportRetryDelay, time.Millisecond, 10*time.Second).
		RangeInt("layout.viewport_retry_attempts", c.Layout.ViewportRetryAttempts, 0, 1000).
		PositiveFloat("layout.drag_threshold", c.Layout.DragThreshold).
		RangeInt("layout.max_ticks", c.Layout.MaxTicks, 1, 1_000_000).
		RangeInt("server.port", c.Server.Port, 1, 65535).
		PositiveFloat("server.width", c.Server.Width).
		PositiveFloat("server.height", c.Server.Height).
		OneOf("log.level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "error"}).
		When(c.DataService.BaseURL != "", func(v *validation.ConfigValidator) {
			v.URL("dataservice.base_url", c.DataService.BaseURL)
		}).
		When(c.DataService.TokenSecret != "", func(v *validation.ConfigValidator) {
			v.Custom("dataservice.token_secret", secretLength(c.DataService.TokenSecret)).
				RangeDuration("dataservice.token_ttl", c.DataService.TokenTTL, time.Minute, 24*time.Hour)
		}).
		When(c.Server.AuthSecret != "", func(v *validation.ConfigValidator) {
			v.Custom("server.auth_secret", secretLength(c.Server.AuthSecret))
		}).
		When(!c.Server.TLS.SelfSigned && c.Server.TLS.Enabled(), func(v *validation.ConfigValidator) {
			v.Required("server.tls.cert_file", c.Server.TLS.CertFile).
				Required("server.tls.key_file", c.Server.TLS.KeyFile)
		}).
		When(c.DataService.S3.Bucket != "", func(v *validation.ConfigValidator) {
			v.RangeDuration("dataservice.s3.link_ttl", c.DataService.S3.LinkTTL, time.Minute, 7*24*time.Hour)
		}).
		Validate()
}

func secretLength(secret string) func() error {
	return func() error {
		if len(secret) < 32 {
			return fmt.Errorf("must be at least 32 characters")
		}
		return nil
	}
}

// LogLevel maps the configured level name to a logging.Level
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}
