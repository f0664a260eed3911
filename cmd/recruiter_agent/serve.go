package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruiter-agent/internal/server"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that exposes POST /process, POST /process/stream and GET /runs/{id}.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			deps := server.Deps{
				Intake:   a.intake,
				Pipeline: a.pipeline,
				Sink:     a.sink,
				Logger:   a.log,
			}
			if a.audit != nil {
				deps.Audit = a.audit
			}
			if cfg.Server.JWTSecret != "" {
				auth, err := server.NewJWTService(cfg.Server.JWTSecret)
				if err != nil {
					return err
				}
				deps.Auth = auth
			} else {
				a.log.Warn("JWT_SECRET not set, /process is unauthenticated")
			}

			srv, err := server.New(server.Config{
				Port:           cfg.Server.Port,
				ReadTimeout:    cfg.Server.ReadTimeout,
				WriteTimeout:   cfg.Server.WriteTimeout,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				RunDeadline:    cfg.Pipeline.Deadline,
				Version:        version,
				RateLimit:      rateLimitConfig(cfg.Server),
			}, deps)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on (overrides server.port)")
	return cmd
}
