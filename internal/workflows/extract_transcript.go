package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// Activity names as registered on the worker.
const (
	ParseTranscriptActivity = "ParseTranscript"
	ExtractMeetingActivity  = "ExtractMeeting"
	PublishResultActivity   = "PublishResult"
)

// ExtractTranscriptWorkflow parses, extracts and publishes one transcript.
//
// This workflow:
// 1. Parses the transcript file on the worker
// 2. Runs extraction (the slow step, with a longer timeout)
// 3. Saves the report and publishes the result event
//
// A failure in step 3 is recorded in Errors and does not fail the run.
func ExtractTranscriptWorkflow(ctx workflow.Context, input ExtractTranscriptInput) (*ExtractTranscriptResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting transcript extraction", "path", input.Path, "format", input.Format)

	result := &ExtractTranscriptResult{}
	if err := input.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeBadInput, err)
	}

	retry := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2,
		MaximumAttempts:    3,
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         retry,
	})

	// Step 1: Parse
	var segments []transcript.Segment
	err := workflow.ExecuteActivity(ctx, ParseTranscriptActivity, ParseTranscriptInput{
		Path:   input.Path,
		Format: input.Format,
	}).Get(ctx, &segments)
	if err != nil {
		return nil, NewWorkflowError("parse_transcript", ErrorSeverityCritical, err)
	}
	result.Segments = len(segments)

	// Step 2: Extract
	extractCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         retry,
	})
	var outcome services.Outcome
	err = workflow.ExecuteActivity(extractCtx, ExtractMeetingActivity, ExtractMeetingInput{
		Segments: segments,
		Mode:     input.Mode,
	}).Get(ctx, &outcome)
	if err != nil {
		return nil, NewWorkflowError("extract_meeting", ErrorSeverityCritical, err)
	}
	result.RunID = outcome.RunID
	result.Cached = outcome.Cached
	if outcome.Result != nil {
		result.Source = outcome.Result.Stats.Source
		result.Decisions = len(outcome.Result.Decisions)
		result.Actions = len(outcome.Result.Actions)
		result.Risks = len(outcome.Result.Risks)
	}
	logger.Info("Extraction complete",
		"run_id", result.RunID,
		"decisions", result.Decisions,
		"actions", result.Actions,
		"risks", result.Risks)

	// Step 3: Publish
	var published PublishResultOutput
	err = workflow.ExecuteActivity(ctx, PublishResultActivity, PublishResultInput{
		Outcome:   &outcome,
		Title:     titleFor(input.Path),
		ReportDir: input.ReportDir,
	}).Get(ctx, &published)
	if err != nil {
		logger.Error("Failed to publish result", "error", err)
		result.Errors = append(result.Errors, FormatErrorForResult("failed to publish result", err))
	} else {
		result.ReportPath = published.ReportPath
		result.Published = published.Published
	}

	return result, nil
}
