package workflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/fyrsmithlabs/meetextract/internal/events"
	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/report"
	"github.com/fyrsmithlabs/meetextract/internal/sanitize"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// Non-retryable application error types.
const (
	errTypeBadInput = "BadInput"
)

// Activities holds the dependencies of the extraction activities.
type Activities struct {
	Service *services.Service
}

// ParseTranscript reads and parses a transcript file on the worker.
func (a *Activities) ParseTranscript(ctx context.Context, in ParseTranscriptInput) (segments []transcript.Segment, err error) {
	defer func(start time.Time) { observe(ctx, "parse_transcript", start, err) }(time.Now())
	var format transcript.Format
	format, err = transcript.ParseFormat(in.Format)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeBadInput, err)
	}
	segments, err = transcript.ParseFile(in.Path, format)
	if err != nil {
		if errors.Is(err, transcript.ErrUnsupportedFormat) || errors.Is(err, transcript.ErrEmptyInput) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeBadInput, err)
		}
		return nil, fmt.Errorf("parsing %s: %w", in.Path, err)
	}
	activity.GetLogger(ctx).Info("Parsed transcript", "path", in.Path, "segments", len(segments))
	return segments, nil
}

// ExtractMeeting runs extraction. The result event is left to
// PublishResult.
func (a *Activities) ExtractMeeting(ctx context.Context, in ExtractMeetingInput) (out *services.Outcome, err error) {
	defer func(start time.Time) { observe(ctx, "extract_meeting", start, err) }(time.Now())
	var mode extraction.Mode
	if in.Mode != "" {
		if mode, err = extraction.ParseMode(in.Mode); err != nil {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeBadInput, err)
		}
	}
	out, err = a.Service.Extract(ctx, services.Request{Segments: in.Segments, Mode: mode, NoPublish: true})
	if err != nil {
		if errors.Is(err, services.ErrGenerativeUnavailable) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeBadInput, err)
		}
		return nil, err
	}
	return out, nil
}

// PublishResult saves the report and sends the result event.
func (a *Activities) PublishResult(ctx context.Context, in PublishResultInput) (out *PublishResultOutput, err error) {
	defer func(start time.Time) { observe(ctx, "publish_result", start, err) }(time.Now())
	if in.Outcome == nil {
		return nil, temporal.NewNonRetryableApplicationError("outcome is required", errTypeBadInput, nil)
	}
	out = &PublishResultOutput{}
	if in.ReportDir != "" {
		r := report.New(in.Outcome.RunID, in.Title, in.Outcome.Result, in.Outcome.Provenance)
		dir, err := r.Save(in.ReportDir)
		if err != nil {
			return nil, fmt.Errorf("saving report: %w", err)
		}
		out.ReportPath = dir
	}
	if p := a.Service.Registry().Publisher(); p != nil {
		if err := p.Publish(ctx, events.NewEvent(in.Outcome.RunID, in.Outcome.Result)); err != nil {
			return nil, fmt.Errorf("publishing result: %w", err)
		}
		out.Published = true
	}
	return out, nil
}

// titleFor names a report after its transcript file.
func titleFor(path string) string {
	if base, err := sanitize.SafeBasename(path); err == nil {
		return base
	}
	return filepath.Base(path)
}
