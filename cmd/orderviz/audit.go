package main

import (
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-orderviz/pkg/audit"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the record of node actions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify <file>",
		Short: "Check that no audited action was altered or removed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			last, n, err := audit.Verify(args[0])
			if err != nil {
				bad.Fprintf(cmd.ErrOrStderr(), "%d events verified before the failure\n", n)
				return err
			}
			good.Fprintf(cmd.OutOrStdout(), "%d events verified\n", n)
			if last != "" {
				subtle.Fprintf(cmd.OutOrStdout(), "head %s\n", last)
			}
			return nil
		},
	})
	return cmd
}
