package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/meetextract/internal/http"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API:

  GET  /health
  GET  /metrics
  POST /api/v1/extract   {"segments": [...]} or {"content": "...", "format": "txt"}
  POST /api/v1/tag`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Registry().Close() }()

			srv, err := httpserver.NewServer(svc, a.logger.Underlying(), &httpserver.Config{
				Host:      a.cfg.Server.Host,
				Port:      a.cfg.Server.Port,
				BodyLimit: a.cfg.Server.BodyLimit,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
				a.logger.Info(ctx, "shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}
