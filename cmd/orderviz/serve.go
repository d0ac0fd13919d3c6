package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-orderviz/pkg/api"
	"github.com/dd0wney/cluso-orderviz/pkg/auth"
	"github.com/dd0wney/cluso-orderviz/pkg/config"
	"github.com/dd0wney/cluso-orderviz/pkg/health"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/server"
	"github.com/dd0wney/cluso-orderviz/pkg/source"
	orderviztls "github.com/dd0wney/cluso-orderviz/pkg/tls"
)

// certWarnBefore is when an expiring certificate starts degrading health
const certWarnBefore = 14 * 24 * time.Hour

func serveCmd(g *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts and SVG renderings over HTTP",
		Long: `Run the render server.

  GET /graphs/{scope}/layout   settled node positions as JSON
  GET /graphs/{scope}.svg      the settled graph as SVG (?highlight=term)
  GET /health, /health/ready   health and readiness
  GET /metrics                 Prometheus metrics

Graph routes require a bearer token when server.auth_secret is set;
mint one with 'orderviz token'. SIGHUP reloads the log level.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			logger, closeLog, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()
			return serve(cmd.Context(), g, cfg, logger)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config, 8080)")
	return cmd
}

func serve(ctx context.Context, g *globalFlags, cfg *config.Config, logger logging.Logger) error {
	reg := metrics.NewRegistry()
	loader, err := source.Open(ctx, cfg.Source.Driver, cfg.Source.DSN, logger, reg)
	if err != nil {
		return err
	}
	defer loader.Close()

	var tokens *auth.JWTManager
	if cfg.Server.AuthSecret != "" {
		if tokens, err = auth.NewJWTManager(cfg.Server.AuthSecret, cfg.DataService.TokenTTL); err != nil {
			return err
		}
	}

	checker := health.NewChecker()
	checker.RegisterCheck("source", health.PingCheck("source", func(ctx context.Context) error {
		return source.Ping(ctx, loader)
	}))
	checker.RegisterReadinessCheck("source", health.PingCheck("source", func(ctx context.Context) error {
		return source.Ping(ctx, loader)
	}))
	checker.RegisterCheck("dataservice", health.OptionalCheck("dataservice", cfg.DataService.BaseURL != "", nil))
	checker.RegisterCheck("document_store", health.OptionalCheck("document_store", cfg.DataService.S3.Bucket != "", nil))

	srv := api.NewServer(api.Config{
		Loader:     loader,
		Simulation: simulationOptions(cfg),
		MaxTicks:   cfg.Layout.MaxTicks,
		Width:      cfg.Server.Width,
		Height:     cfg.Server.Height,
		Auth:       tokens,
		Health:     checker,
		Metrics:    reg,
		Logger:     logger,
		Version:    version,
	})

	done := make(chan struct{})
	defer close(done)
	go srv.UpdateMetricsPeriodically(done)

	gs := server.NewGracefulServer(fmt.Sprintf(":%d", cfg.Server.Port), srv.Handler(), logger)
	gs.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	scheme := "http"
	if t := cfg.Server.TLS; t.Enabled() {
		tc, leaf, err := orderviztls.ServerConfig(orderviztls.Config{
			CertFile:   t.CertFile,
			KeyFile:    t.KeyFile,
			SelfSigned: t.SelfSigned,
			Hosts:      t.Hosts,
		})
		if err != nil {
			return err
		}
		gs.SetTLSConfig(tc)
		checker.RegisterCheck("tls", health.CertificateCheck(leaf.NotAfter, certWarnBefore, nil))
		scheme = "https"
	}
	gs.SetConfigReloadFunc(func() error {
		next, err := g.load()
		if err != nil {
			return err
		}
		logger.SetLevel(next.LogLevel())
		return nil
	})

	good.Fprintf(os.Stderr, "orderviz serving %s graphs on %s://:%d\n", cfg.Source.Driver, scheme, cfg.Server.Port)
	return gs.Run(ctx)
}
