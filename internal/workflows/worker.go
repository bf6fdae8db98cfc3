package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// Register adds the workflow and its activities to w.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(ExtractTranscriptWorkflow, workflow.RegisterOptions{Name: "ExtractTranscriptWorkflow"})
	w.RegisterActivityWithOptions(acts.ParseTranscript, activity.RegisterOptions{Name: ParseTranscriptActivity})
	w.RegisterActivityWithOptions(acts.ExtractMeeting, activity.RegisterOptions{Name: ExtractMeetingActivity})
	w.RegisterActivityWithOptions(acts.PublishResult, activity.RegisterOptions{Name: PublishResultActivity})
}

// NewWorker creates a worker on taskQueue with everything registered.
func NewWorker(c client.Client, taskQueue string, acts *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	Register(w, acts)
	return w
}

// Submit starts ExtractTranscriptWorkflow and returns its handle.
func Submit(ctx context.Context, c client.Client, taskQueue string, input ExtractTranscriptInput) (client.WorkflowRun, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "extract-" + uuid.NewString(),
		TaskQueue: taskQueue,
	}, ExtractTranscriptWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("starting workflow: %w", err)
	}
	return run, nil
}
