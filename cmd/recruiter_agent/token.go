package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruiter-agent/internal/server"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a client",
		Long:  `Signs a bearer token with server.jwt_secret (JWT_SECRET) for calling the protected endpoints.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is not set")
			}
			svc, err := server.NewJWTService(cfg.Server.JWTSecret)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Client the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
