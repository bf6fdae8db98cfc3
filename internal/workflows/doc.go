// Package workflows runs transcript extraction as a Temporal workflow.
//
// ExtractTranscriptWorkflow parses a transcript file, extracts decisions,
// action items and risks, then saves a report and publishes the result
// event. Each step is an activity with a three-attempt retry policy, so a
// flaky embedding or generative backend is retried without re-parsing.
package workflows
