package extraction

import "strings"

// candidate is a tagged sentence paired with the index of its origin
// segment, or -1 when no segment contains it.
type candidate struct {
	tag IntentTag
	idx int
}

// candidateSet is how an extractor picks sentences to promote.
type candidateSet struct {
	intent     Intent
	minCount   int
	augmentAt  float64
	scanWords  []string
	minTagConf float64
}

// candidates keeps tags carrying the intent above the minimum score. When
// fewer than minCount remain, segments containing scan words that no
// candidate came from are added at the augmentation confidence.
func (r *run) candidates(tags []IntentTag, cs candidateSet) []candidate {
	var out []candidate
	represented := map[int]bool{}
	for _, t := range tags {
		if !t.Has(cs.intent) || t.Confidence <= cs.minTagConf {
			continue
		}
		idx := r.locate(t.Sentence)
		out = append(out, candidate{tag: t, idx: idx})
		represented[idx] = true
	}
	if len(out) >= cs.minCount {
		return out
	}

	for i, seg := range r.segments {
		if represented[i] || !containsAny(seg.Text, cs.scanWords) {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		out = append(out, candidate{
			tag: IntentTag{
				Sentence:   text,
				Speaker:    seg.Speaker,
				Timestamp:  seg.Timestamp,
				Intents:    []Intent{cs.intent},
				Confidence: cs.augmentAt,
			},
			idx: i,
		})
		represented[i] = true
	}
	return out
}
