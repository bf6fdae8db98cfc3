package extraction

import "strings"

// Normalize applies the record invariants to a result built outside the
// heuristic extractors, such as a generative answer: confidences rounded
// to two decimals, name lists deduplicated with Unclear as the empty
// value, and mitigations deduplicated by prefix and capped.
func (r *Result) Normalize(th Thresholds) {
	for i := range r.Decisions {
		d := &r.Decisions[i]
		d.Participants = unionNames(d.Participants)
		if len(d.Participants) == 0 {
			d.Participants = []string{orUnclear(d.Speaker)}
		}
		d.Confidence = round2(d.Confidence)
	}

	for i := range r.Actions {
		a := &r.Actions[i]
		a.Owner = orUnclear(a.Owner)
		a.Confidence = round2(a.Confidence)
	}

	for i := range r.Risks {
		k := &r.Risks[i]
		mitigation := make([]string, 0, len(k.Mitigation))
		for _, m := range k.Mitigation {
			if len(mitigation) >= th.MaxMitigations {
				break
			}
			mitigation = appendUnique(mitigation, th.PrefixLength, strings.TrimSpace(m))
		}
		k.Mitigation = mitigation

		owners := unionNames([]string{k.Owner}, k.Owners)
		k.Owner, k.Owners = orUnclear(k.MentionedBy), nil
		if len(owners) > 0 {
			k.Owner = owners[0]
		}
		if len(owners) > 1 {
			k.Owners = owners
		}
		k.MentionedBy = orUnclear(k.MentionedBy)
		k.Confidence = round2(k.Confidence)
	}
}

func orUnclear(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Unclear
	}
	return s
}
