// Meetextract extracts decisions, action items and risks from meeting
// transcripts.
//
// Usage:
//
//	# Extract from a transcript and print a terminal report
//	meetextract extract standup.txt --output terminal
//
//	# Serve the HTTP API
//	meetextract serve
//
//	# Run the Temporal worker and submit a batch job
//	meetextract worker
//	meetextract submit /data/transcripts/weekly.json
//
// Configuration is read from ~/.config/meetextract/config.yaml and
// MEETEXTRACT_* environment variables. A .env file in the working
// directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/config"
	"github.com/fyrsmithlabs/meetextract/internal/logging"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	envFile    string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "meetextract",
		Short: "Extract decisions, action items and risks from meeting transcripts",
		Long: `meetextract turns meeting transcripts (txt, json or srt) into decisions,
action items and risks, with confidence scores and source attribution.

It runs as a one-shot CLI, an HTTP API, an MCP tool server, a folder
watcher, or a Temporal worker for batch jobs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/meetextract/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(
		newExtractCmd(),
		newTagCmd(),
		newServeCmd(),
		newWorkerCmd(),
		newSubmitCmd(),
		newWatchCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// app holds what every command needs after bootstrap.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
}

// bootstrapOptions adjust the loaded config for a command.
type bootstrapOptions struct {
	// stderrLogs keeps stdout free for command output.
	stderrLogs bool
}

// bootstrap loads .env and config, then starts logging and telemetry.
func bootstrap(ctx context.Context, opts bootstrapOptions) (*app, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.stderrLogs {
		cfg.Logging.Output.Stderr = true
	}

	logger, err := logging.NewLogger(&cfg.Logging, global.GetLoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	if degraded, reason := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", reason))
	}
	return &app{cfg: cfg, logger: logger, telemetry: tel}, nil
}

// service builds the extraction service from config.
func (a *app) service(ctx context.Context) (*services.Service, error) {
	svc, err := services.Build(ctx, a.cfg, a.logger.Underlying())
	if err != nil {
		return nil, fmt.Errorf("building extraction service: %w", err)
	}
	return svc, nil
}

// close flushes telemetry and logs. Errors are logged, not returned.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.ShutdownTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "meetextract by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
