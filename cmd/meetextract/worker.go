package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/config"
	"github.com/fyrsmithlabs/meetextract/internal/workflows"
)

func dialTemporal(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return c, nil
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker for batch extraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Registry().Close() }()

			c, err := dialTemporal(a.cfg.Temporal)
			if err != nil {
				return err
			}
			defer c.Close()
			a.logger.Info(ctx, "temporal client connected", zap.String("host", a.cfg.Temporal.HostPort))

			w := workflows.NewWorker(c, a.cfg.Temporal.TaskQueue, &workflows.Activities{Service: svc})
			a.logger.Info(ctx, "worker configured", zap.String("task_queue", a.cfg.Temporal.TaskQueue))

			if err := w.Start(); err != nil {
				return fmt.Errorf("worker error: %w", err)
			}
			<-ctx.Done()
			a.logger.Info(ctx, "shutdown signal received")
			w.Stop()
			a.logger.Info(ctx, "worker stopped gracefully")
			return nil
		},
	}
}

func newSubmitCmd() *cobra.Command {
	var (
		format    string
		mode      string
		reportDir string
		wait      bool
	)
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a transcript to the Temporal worker",
		Long: `Submit a transcript to the Temporal worker. The path must be readable
by the worker; it is made absolute before submission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireFile(args[0]); err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			a, err := bootstrap(ctx, bootstrapOptions{stderrLogs: true})
			if err != nil {
				return err
			}
			defer a.close()

			c, err := dialTemporal(a.cfg.Temporal)
			if err != nil {
				return err
			}
			defer c.Close()

			run, err := workflows.Submit(ctx, c, a.cfg.Temporal.TaskQueue, workflows.ExtractTranscriptInput{
				Path:      path,
				Format:    format,
				Mode:      mode,
				ReportDir: reportDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Submitted workflow %s (run %s)\n", run.GetID(), run.GetRunID())
			if !wait {
				return nil
			}
			var result workflows.ExtractTranscriptResult
			if err := run.Get(ctx, &result); err != nil {
				return fmt.Errorf("workflow failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "auto", "transcript format: txt, json, srt or auto")
	cmd.Flags().StringVar(&mode, "mode", "", "extraction mode override")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "directory on the worker that receives the report")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the workflow and print its result")
	return cmd
}
