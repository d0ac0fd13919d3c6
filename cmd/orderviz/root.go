package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-orderviz/pkg/config"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
)

var version = "0.3.0"

var (
	brand  = color.New(color.FgHiCyan, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

type globalFlags struct {
	configPath string
	logFile    string
	logLevel   string
	driver     string
	dsn        string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "orderviz",
		Short:         "Order and document relationship graphs",
		Long:          brand.Sprint("orderviz") + " lays out orders and their documents as a force-directed graph\n" + subtle.Sprint("Explore it in the terminal, export SVG or serve layouts over HTTP"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("orderviz {{ .Version }}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	pf.StringVar(&g.logFile, "log-file", "", "Write JSON logs to this file")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.driver, "source", "", "Graph source driver (file, postgres, sqlite)")
	pf.StringVar(&g.dsn, "dsn", "", "Graph source location: directory, connection URL or database path")

	root.AddCommand(
		tuiCmd(g),
		renderCmd(g),
		serveCmd(g),
		tokenCmd(g),
		certCmd(),
		auditCmd(),
		versionCmd(),
	)
	return root
}

// load reads configuration and applies command-line overrides on top
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logFile != "" {
		cfg.Log.File = g.logFile
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.driver != "" {
		cfg.Source.Driver = g.driver
	}
	if g.dsn != "" {
		cfg.Source.DSN = g.dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger logs to the configured file, or to fallback when none is set.
// A nil fallback discards logs.
func newLogger(cfg *config.Config, fallback io.Writer) (logging.Logger, func(), error) {
	if cfg.Log.File != "" {
		l, err := logging.NewFileLogger(cfg.Log.File, cfg.LogLevel())
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return l, func() { l.Close() }, nil
	}
	if fallback == nil {
		return logging.NewNopLogger(), func() {}, nil
	}
	return logging.NewJSONLogger(fallback, cfg.LogLevel()), func() {}, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", brand.Sprint("orderviz"), version)
		},
	}
}
