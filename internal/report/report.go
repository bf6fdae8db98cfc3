// Package report renders extraction results as Markdown, JSON or styled
// terminal output, and saves a run's artifacts to a directory.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/provenance"
)

// Confidence levels.
const (
	LevelHigh   = "High"
	LevelMedium = "Medium"
	LevelLow    = "Low"
)

// Level buckets a confidence score.
func Level(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return LevelHigh
	case confidence >= 0.6:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Report is one run ready for rendering.
type Report struct {
	RunID       string
	Title       string
	GeneratedAt time.Time
	Result      *extraction.Result
	Provenance  *provenance.Summary
}

// New builds a report stamped with the current time. A nil result renders
// as empty.
func New(runID, title string, res *extraction.Result, prov *provenance.Summary) Report {
	if res == nil {
		res = extraction.EmptyResult()
	}
	return Report{RunID: runID, Title: title, GeneratedAt: time.Now().UTC(), Result: res, Provenance: prov}
}

type jsonReport struct {
	RunID      string                `json:"run_id"`
	Decisions  []extraction.Decision `json:"decisions"`
	Actions    []extraction.Action   `json:"action_items"`
	Risks      []extraction.Risk     `json:"risks"`
	Stats      extraction.Stats      `json:"stats"`
	Provenance *provenance.Summary   `json:"provenance,omitempty"`
}

// WriteJSON writes the indented JSON form.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		RunID:      r.RunID,
		Decisions:  r.Result.Decisions,
		Actions:    r.Result.Actions,
		Risks:      r.Result.Risks,
		Stats:      r.Result.Stats,
		Provenance: r.Provenance,
	})
}

// Artifact file names written by Save.
const (
	FullReportFile = "full_report.json"
	MarkdownFile   = "report.md"
	ItemsFile      = "extracted_items.json"
)

// Save writes the JSON report, the Markdown report and the bare item lists
// into dir/<run id>, returning that directory.
func (r Report) Save(dir string) (string, error) {
	jobDir := filepath.Join(dir, r.RunID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", jobDir, err)
	}

	write := func(name string, render func(io.Writer) error) error {
		f, err := os.Create(filepath.Join(jobDir, name))
		if err != nil {
			return err
		}
		if err := render(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return f.Close()
	}

	if err := write(FullReportFile, r.WriteJSON); err != nil {
		return "", err
	}
	if err := write(MarkdownFile, r.WriteMarkdown); err != nil {
		return "", err
	}
	items := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"decisions":    r.Result.Decisions,
			"action_items": r.Result.Actions,
			"risks":        r.Result.Risks,
		})
	}
	if err := write(ItemsFile, items); err != nil {
		return "", err
	}
	return jobDir, nil
}

// Output formats accepted by Write.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatTerminal = "terminal"
)

// Write renders r in format.
func (r Report) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON, "":
		return r.WriteJSON(w)
	case FormatMarkdown, "md":
		return r.WriteMarkdown(w)
	case FormatTerminal:
		return r.WriteTerminal(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
