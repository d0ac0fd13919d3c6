package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	orderviztls "github.com/dd0wney/cluso-orderviz/pkg/tls"
)

func certCmd() *cobra.Command {
	var (
		dir      string
		hosts    []string
		validFor time.Duration
	)

	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Write a self-signed certificate pair for the render server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cert, err := orderviztls.SelfSigned(hosts, validFor, time.Now())
			if err != nil {
				return err
			}
			certFile := filepath.Join(dir, "server.crt")
			keyFile := filepath.Join(dir, "server.key")
			if err := orderviztls.WritePEM(cert, certFile, keyFile); err != nil {
				return err
			}
			good.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", certFile, keyFile)
			subtle.Fprintf(cmd.OutOrStdout(), "valid until %s\n", cert.Leaf.NotAfter.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "out-dir", "certs", "Directory for server.crt and server.key")
	cmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "DNS name or IP to certify (repeatable)")
	cmd.Flags().DurationVar(&validFor, "valid-for", orderviztls.DefaultValidFor, "Certificate lifetime")
	return cmd
}
