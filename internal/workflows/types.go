package workflows

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/sanitize"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// ExtractTranscriptInput configures one workflow run.
type ExtractTranscriptInput struct {
	Path   string // Transcript file readable by the worker
	Format string // txt, json, srt or auto
	Mode   string // Overrides the worker's extraction mode when set
	// ReportDir receives <run id>/report.md and friends. Empty skips saving.
	ReportDir string
}

// Validate rejects inputs the workflow cannot run.
func (in ExtractTranscriptInput) Validate() error {
	if strings.TrimSpace(in.Path) == "" {
		return fmt.Errorf("path is required")
	}
	if _, err := sanitize.ValidatePath(in.Path, ""); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if in.ReportDir != "" {
		if _, err := sanitize.ValidatePath(in.ReportDir, ""); err != nil {
			return fmt.Errorf("invalid report dir: %w", err)
		}
	}
	if _, err := transcript.ParseFormat(in.Format); err != nil {
		return err
	}
	if _, err := extraction.ParseMode(in.Mode); err != nil {
		return err
	}
	return nil
}

// ExtractTranscriptResult summarizes a workflow run.
type ExtractTranscriptResult struct {
	RunID      string   // Extraction run id
	Source     string   // heuristic or generative
	Segments   int      // Parsed segments
	Decisions  int      // Extracted decisions
	Actions    int      // Extracted action items
	Risks      int      // Extracted risks
	Cached     bool     // Result came from the cache
	ReportPath string   // Directory with the saved report, if any
	Published  bool     // Result event was sent
	Errors     []string // Non-fatal failures
}

// Activity input types

type ParseTranscriptInput struct {
	Path   string
	Format string
}

type ExtractMeetingInput struct {
	Segments []transcript.Segment
	Mode     string
}

type PublishResultInput struct {
	Outcome   *services.Outcome
	Title     string
	ReportDir string
}

type PublishResultOutput struct {
	ReportPath string
	Published  bool
}
