package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/meetextract/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the extract_meeting MCP tool on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, bootstrapOptions{stderrLogs: true})
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Registry().Close() }()

			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "meetextract",
				Version: version,
				Logger:  a.logger.Underlying(),
			}, svc)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
