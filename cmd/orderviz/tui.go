package main

import (
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-orderviz/pkg/audit"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
	"github.com/dd0wney/cluso-orderviz/pkg/source"
	"github.com/dd0wney/cluso-orderviz/pkg/tui"
)

func tuiCmd(g *globalFlags) *cobra.Command {
	var downloadDir string

	cmd := &cobra.Command{
		Use:   "tui <scope>",
		Short: "Explore a scope's graph in the terminal",
		Long: `Open the interactive viewer for a customer, shipment or order.

  orderviz tui acme                       # graphs/acme.json or .yaml
  orderviz tui ORD-1042 --source sqlite --dsn orders.db
  orderviz tui all --log-file orderviz.log

Click a node for its actions, drag nodes to pin them, scroll to zoom.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			// stderr belongs to the terminal UI
			logger, closeLog, err := newLogger(cfg, nil)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx := cmd.Context()
			reg := metrics.NewRegistry()
			loader, err := source.Open(ctx, cfg.Source.Driver, cfg.Source.DSN, logger, reg)
			if err != nil {
				return err
			}
			defer loader.Close()

			service, err := newDataService(ctx, cfg, logger, reg)
			if err != nil {
				return err
			}

			opts := tui.Options{
				Loader:        loader,
				Scope:         args[0],
				Service:       service,
				Engine:        engineOptions(cfg),
				DragThreshold: cfg.Layout.DragThreshold,
				DownloadDir:   downloadDir,
				Logger:        logger,
				Metrics:       reg,
			}
			if cfg.Log.AuditFile != "" {
				trail, err := audit.NewFileLogger(cfg.Log.AuditFile)
				if err != nil {
					return err
				}
				defer trail.Close()
				opts.Audit = trail
			}
			return tui.Run(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&downloadDir, "download-dir", "d", ".", "Where downloaded documents are saved")
	return cmd
}
