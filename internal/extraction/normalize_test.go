package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_Normalize(t *testing.T) {
	th := DefaultThresholds()
	th.MaxMitigations = 2

	res := &Result{
		Decisions: []Decision{{Text: "Adopt Postgres", Speaker: "Ann", Confidence: 0.734}},
		Actions:   []Action{{Action: "Book a room", Owner: "  ", Confidence: 1.2}},
		Risks: []Risk{{
			Risk:       "Vendor may slip",
			Owner:      "Unclear",
			Owners:     []string{"raj", "Raj", "Ana"},
			Mitigation: []string{"Ask for a beta", "ask for a BETA", "", "Add buffer", "Escalate"},
			Confidence: 0.556,
		}},
	}
	res.Normalize(th)

	assert.Equal(t, []string{"Ann"}, res.Decisions[0].Participants)
	assert.Equal(t, 0.73, res.Decisions[0].Confidence)
	assert.Equal(t, Unclear, res.Actions[0].Owner)
	assert.Equal(t, 1.0, res.Actions[0].Confidence)

	k := res.Risks[0]
	assert.Equal(t, []string{"Ask for a beta", "Add buffer"}, k.Mitigation)
	assert.Equal(t, "raj", k.Owner)
	assert.Equal(t, []string{"raj", "Ana"}, k.Owners)
	assert.Equal(t, Unclear, k.MentionedBy)
	assert.Equal(t, 0.56, k.Confidence)

	again := *res
	again.Risks = append([]Risk(nil), res.Risks...)
	again.Normalize(th)
	assert.Equal(t, res.Risks, again.Risks, "normalizing twice changes nothing")
}
