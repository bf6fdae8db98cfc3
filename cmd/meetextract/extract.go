package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/report"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// readTranscript parses path, or stdin when path is "-".
func readTranscript(cmd *cobra.Command, path, format string) ([]transcript.Segment, error) {
	f, err := transcript.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if path == "-" {
		return transcript.Parse(cmd.InOrStdin(), f)
	}
	return transcript.ParseFile(path, f)
}

func newExtractCmd() *cobra.Command {
	var (
		format  string
		output  string
		outDir  string
		mode    string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract decisions, action items and risks from a transcript",
		Long: `Extract decisions, action items and risks from a transcript file.

Examples:
  # Print a terminal report
  meetextract extract standup.txt --output terminal

  # Read JSON from stdin and save the full report set
  cat meeting.json | meetextract extract - --format json --out-dir reports/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case report.FormatJSON, report.FormatMarkdown, report.FormatTerminal:
			default:
				return fmt.Errorf("unknown output %q (json, markdown or terminal)", output)
			}
			var m extraction.Mode
			if mode != "" {
				var err error
				if m, err = extraction.ParseMode(mode); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx, bootstrapOptions{stderrLogs: true})
			if err != nil {
				return err
			}
			defer a.close()

			segments, err := readTranscript(cmd, args[0], format)
			if err != nil {
				return err
			}
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Registry().Close() }()

			out, err := svc.Extract(ctx, services.Request{Segments: segments, Mode: m, NoCache: noCache})
			if err != nil {
				return err
			}
			r := report.New(out.RunID, titleFor(args[0]), out.Result, out.Provenance)
			if outDir != "" {
				dir, err := r.Save(outDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", dir)
			}
			return r.Write(cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "auto", "transcript format: txt, json, srt or auto")
	cmd.Flags().StringVarP(&output, "output", "o", report.FormatTerminal, "output: json, markdown or terminal")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "also save report.md, full_report.json and extracted_items.json under <dir>/<run id>")
	cmd.Flags().StringVar(&mode, "mode", "", "extraction mode: heuristic, generative or hybrid (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the result cache lookup")
	return cmd
}

func newTagCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tag <file>",
		Short: "Print the intent tags of every transcript sentence as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, bootstrapOptions{stderrLogs: true})
			if err != nil {
				return err
			}
			defer a.close()

			segments, err := readTranscript(cmd, args[0], format)
			if err != nil {
				return err
			}
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Registry().Close() }()

			return writeJSON(cmd.OutOrStdout(), svc.Tag(ctx, segments))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "auto", "transcript format: txt, json, srt or auto")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func titleFor(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

// requireFile fails early with a readable error for a missing input.
func requireFile(path string) error {
	if path == "-" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("transcript %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("transcript %s is a directory", path)
	}
	return nil
}
