package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/meetextract/internal/events"
	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/report"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

const standup = `Alice: We decided to move the launch to March.
Bob: I will update the release checklist by Friday.
Carol: There is a risk that the vendor API is not ready in time.
`

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

func newActivities(t *testing.T, pub services.Publisher) *Activities {
	t.Helper()
	pipeline, err := extraction.NewPipeline(context.Background(), extraction.Options{})
	require.NoError(t, err)
	svc, err := services.NewService(services.NewRegistry(services.Options{Pipeline: pipeline, Publisher: pub}), extraction.ModeHeuristic, nil)
	require.NoError(t, err)
	return &Activities{Service: svc}
}

func writeTranscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standup.txt")
	require.NoError(t, os.WriteFile(path, []byte(standup), 0o600))
	return path
}

func newEnv(acts *Activities) *testsuite.TestWorkflowEnvironment {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(ExtractTranscriptWorkflow, workflow.RegisterOptions{Name: "ExtractTranscriptWorkflow"})
	env.RegisterActivityWithOptions(acts.ParseTranscript, activity.RegisterOptions{Name: ParseTranscriptActivity})
	env.RegisterActivityWithOptions(acts.ExtractMeeting, activity.RegisterOptions{Name: ExtractMeetingActivity})
	env.RegisterActivityWithOptions(acts.PublishResult, activity.RegisterOptions{Name: PublishResultActivity})
	return env
}

func TestExtractTranscriptWorkflow(t *testing.T) {
	t.Run("end to end with real activities", func(t *testing.T) {
		pub := &recordingPublisher{}
		env := newEnv(newActivities(t, pub))
		reportDir := t.TempDir()

		env.ExecuteWorkflow(ExtractTranscriptWorkflow, ExtractTranscriptInput{
			Path:      writeTranscript(t),
			Format:    "txt",
			ReportDir: reportDir,
		})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result ExtractTranscriptResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, 3, result.Segments)
		assert.NotEmpty(t, result.RunID)
		assert.Equal(t, extraction.SourceHeuristic, result.Source)
		assert.True(t, result.Published)
		assert.Empty(t, result.Errors)
		assert.Equal(t, filepath.Join(reportDir, result.RunID), result.ReportPath)
		assert.FileExists(t, filepath.Join(result.ReportPath, report.MarkdownFile))

		require.Len(t, pub.events, 1, "the event is sent once, by PublishResult")
		assert.Equal(t, result.RunID, pub.events[0].RunID)
	})

	t.Run("publish failure is recorded, not fatal", func(t *testing.T) {
		acts := newActivities(t, nil)
		env := newEnv(acts)
		env.OnActivity(PublishResultActivity, mock.Anything, mock.Anything).
			Return(nil, errors.New("nats unavailable"))

		env.ExecuteWorkflow(ExtractTranscriptWorkflow, ExtractTranscriptInput{Path: writeTranscript(t)})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		var result ExtractTranscriptResult
		require.NoError(t, env.GetWorkflowResult(&result))
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "failed to publish result")
		assert.False(t, result.Published)
	})

	t.Run("parse failure fails the workflow", func(t *testing.T) {
		env := newEnv(newActivities(t, nil))
		env.OnActivity(ParseTranscriptActivity, mock.Anything, ParseTranscriptInput{Path: "/missing.txt", Format: "txt"}).
			Return(nil, temporal.NewNonRetryableApplicationError("no such file", errTypeBadInput, nil))

		env.ExecuteWorkflow(ExtractTranscriptWorkflow, ExtractTranscriptInput{Path: "/missing.txt", Format: "txt"})

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse_transcript")
	})

	t.Run("extract retries transient failures", func(t *testing.T) {
		env := newEnv(newActivities(t, nil))
		segments := []transcript.Segment{{Speaker: "Alice", Text: "We decided to ship."}}
		env.OnActivity(ParseTranscriptActivity, mock.Anything, mock.Anything).Return(segments, nil)
		env.OnActivity(ExtractMeetingActivity, mock.Anything, mock.Anything).
			Return(nil, errors.New("embedding service timeout")).Times(2)
		env.OnActivity(ExtractMeetingActivity, mock.Anything, mock.Anything).
			Return(&services.Outcome{RunID: "run-9", Result: extraction.EmptyResult()}, nil).Once()
		env.OnActivity(PublishResultActivity, mock.Anything, mock.Anything).Return(&PublishResultOutput{}, nil)

		env.ExecuteWorkflow(ExtractTranscriptWorkflow, ExtractTranscriptInput{Path: "/meeting.txt"})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		var result ExtractTranscriptResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, "run-9", result.RunID)
		env.AssertExpectations(t)
	})

	t.Run("invalid input", func(t *testing.T) {
		env := newEnv(newActivities(t, nil))
		env.ExecuteWorkflow(ExtractTranscriptWorkflow, ExtractTranscriptInput{Path: "a.txt", Format: "docx"})
		require.True(t, env.IsWorkflowCompleted())
		assert.Error(t, env.GetWorkflowError())
	})
}

func TestActivities_ParseTranscript(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	acts := newActivities(t, nil)
	env.RegisterActivityWithOptions(acts.ParseTranscript, activity.RegisterOptions{Name: ParseTranscriptActivity})

	val, err := env.ExecuteActivity(ParseTranscriptActivity, ParseTranscriptInput{Path: writeTranscript(t)})
	require.NoError(t, err)
	var segments []transcript.Segment
	require.NoError(t, val.Get(&segments))
	require.Len(t, segments, 3)
	assert.Equal(t, "Alice", segments[0].Speaker)

	_, err = env.ExecuteActivity(ParseTranscriptActivity, ParseTranscriptInput{Path: "x.txt", Format: "docx"})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
}

func TestExtractTranscriptInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   ExtractTranscriptInput
		wantErr bool
	}{
		{"minimal", ExtractTranscriptInput{Path: "a.txt"}, false},
		{"full", ExtractTranscriptInput{Path: "a.srt", Format: "srt", Mode: "hybrid"}, false},
		{"empty path", ExtractTranscriptInput{}, true},
		{"null byte", ExtractTranscriptInput{Path: "a\x00.txt"}, true},
		{"traversal", ExtractTranscriptInput{Path: "../secrets.txt"}, true},
		{"report dir traversal", ExtractTranscriptInput{Path: "a.txt", ReportDir: "out/../../etc"}, true},
		{"bad format", ExtractTranscriptInput{Path: "a.txt", Format: "pdf"}, true},
		{"bad mode", ExtractTranscriptInput{Path: "a.txt", Mode: "magic"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowError(t *testing.T) {
	base := errors.New("boom")
	err := NewWorkflowError("extract_meeting", ErrorSeverityCritical, base)
	assert.EqualError(t, err, "extract_meeting failed: boom")
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "op: boom", FormatErrorForResult("op", base))
}
