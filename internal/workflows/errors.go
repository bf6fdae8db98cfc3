package workflows

import (
	"fmt"
)

// Error severity levels for workflow errors
type ErrorSeverity string

const (
	// ErrorSeverityCritical fails the workflow.
	ErrorSeverityCritical ErrorSeverity = "critical"
	// ErrorSeverityHigh is recorded in the result; the workflow continues.
	ErrorSeverityHigh ErrorSeverity = "high"
)

// WorkflowError is a failed workflow step.
type WorkflowError struct {
	Operation string        // The step that failed, e.g. "parse_transcript"
	Severity  ErrorSeverity // How severe the error is
	Err       error         // The underlying error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Err.Error())
}

// Unwrap allows errors.Is and errors.As to work with WorkflowError
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a workflow error.
func NewWorkflowError(operation string, severity ErrorSeverity, err error) *WorkflowError {
	return &WorkflowError{Operation: operation, Severity: severity, Err: err}
}

// FormatErrorForResult formats an error for ExtractTranscriptResult.Errors.
func FormatErrorForResult(operation string, err error) string {
	return fmt.Sprintf("%s: %v", operation, err)
}
