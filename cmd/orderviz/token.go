package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-orderviz/pkg/auth"
)

func tokenCmd(g *globalFlags) *cobra.Command {
	var (
		subject string
		scope   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the render server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cfg.Server.AuthSecret == "" {
				return errors.New("server.auth_secret is not set")
			}
			if ttl <= 0 {
				ttl = cfg.DataService.TokenTTL
			}
			m, err := auth.NewJWTManager(cfg.Server.AuthSecret, ttl)
			if err != nil {
				return err
			}
			token, exp, err := m.GenerateToken(subject, scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			subtle.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "orderviz-cli", "Token subject")
	cmd.Flags().StringVar(&scope, "scope", "", "Optional scope claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default dataservice.token_ttl)")
	return cmd
}
