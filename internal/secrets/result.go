package secrets

import "github.com/fyrsmithlabs/meetextract/internal/extraction"

// RedactResult returns a copy of res with secrets removed from every free
// text field. Finding.Segment is -1 since records are not segments.
func (r *Redactor) RedactResult(res *extraction.Result) (*extraction.Result, Summary) {
	summary := Summary{RuleCounts: map[string]int{}}
	if res == nil {
		return nil, summary
	}
	scrub := func(s *string) {
		text, findings := r.Redact(*s)
		*s = text
		for _, f := range findings {
			f.Segment = -1
			summary.Findings = append(summary.Findings, f)
			summary.RuleCounts[f.RuleID]++
		}
	}

	out := *res
	out.Decisions = make([]extraction.Decision, len(res.Decisions))
	for i, d := range res.Decisions {
		scrub(&d.Text)
		scrub(&d.Title)
		scrub(&d.Rationale)
		d.Participants = append([]string(nil), d.Participants...)
		out.Decisions[i] = d
	}
	out.Actions = make([]extraction.Action, len(res.Actions))
	for i, a := range res.Actions {
		scrub(&a.Action)
		out.Actions[i] = a
	}
	out.Risks = make([]extraction.Risk, len(res.Risks))
	for i, rk := range res.Risks {
		scrub(&rk.Risk)
		scrub(&rk.Title)
		scrub(&rk.Impact)
		mitigation := make([]string, len(rk.Mitigation))
		for j, m := range rk.Mitigation {
			scrub(&m)
			mitigation[j] = m
		}
		rk.Mitigation = mitigation
		rk.Owners = append([]string(nil), rk.Owners...)
		out.Risks[i] = rk
	}
	return &out, summary
}
