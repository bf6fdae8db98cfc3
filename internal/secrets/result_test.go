package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
)

func TestRedactResult(t *testing.T) {
	r := newRedactor(t, nil)

	res := extraction.EmptyResult()
	res.Decisions = append(res.Decisions, extraction.Decision{Text: "Rotate " + githubToken + " today.", Participants: []string{"Alice"}})
	res.Actions = append(res.Actions, extraction.Action{Action: "Bob will update the runbook."})
	res.Risks = append(res.Risks, extraction.Risk{Risk: "Leaked key", Mitigation: []string{"Revoke " + githubToken}})

	out, summary := r.RedactResult(res)
	require.NotNil(t, out)
	if summary.Total() == 0 {
		t.Skip("gitleaks did not flag the sample token")
	}

	assert.NotContains(t, out.Decisions[0].Text, githubToken)
	assert.NotContains(t, out.Risks[0].Mitigation[0], githubToken)
	assert.Equal(t, "Bob will update the runbook.", out.Actions[0].Action)
	assert.Equal(t, 2, summary.Total())
	for _, f := range summary.Findings {
		assert.Equal(t, -1, f.Segment)
	}

	// The input is untouched.
	assert.Contains(t, res.Decisions[0].Text, githubToken)
	assert.Contains(t, res.Risks[0].Mitigation[0], githubToken)

	nilOut, nilSummary := r.RedactResult(nil)
	assert.Nil(t, nilOut)
	assert.Zero(t, nilSummary.Total())
}
