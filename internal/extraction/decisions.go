package extraction

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

var rationalePatterns = Chain[string]{
	regexStrategy("because", regexp.MustCompile(`(?i)\bbecause\s+([^.!?]+)`), 1),
	regexStrategy("since", regexp.MustCompile(`(?i)\bsince\s+([^.!?]+)`), 1),
	regexStrategy("due_to", regexp.MustCompile(`(?i)\bdue\s+to\s+([^.!?]+)`), 1),
	regexStrategy("given_that", regexp.MustCompile(`(?i)\bgiven\s+that\s+([^.!?]+)`), 1),
	regexStrategy("to_provide", regexp.MustCompile(`(?i)\b(to\s+provide\s+[^.!?]+)`), 1),
	regexStrategy("to_ensure", regexp.MustCompile(`(?i)\b(to\s+ensure\s+[^.!?]+)`), 1),
	regexStrategy("to_give", regexp.MustCompile(`(?i)\b(to\s+give\s+[^.!?]+)`), 1),
}

const capPhrase = `((?:[A-Z][\w-]*\s*){1,5})`

var decisionTitlePatterns = Chain[string]{
	regexStrategy("after_verb", regexp.MustCompile(`(?i:\b(?:decided|agreed|approved|finalized|chose|selected|settled)\s+(?:to\s+|on\s+|that\s+)?(?:go\s+with\s+|use\s+|adopt\s+)?(?:the\s+)?)`+capPhrase), 1),
	regexStrategy("before_passive", regexp.MustCompile(capPhrase+`(?i:\s*(?:was|were|has\s+been|is)\s+(?:approved|finalized|agreed|decided|selected|chosen))`), 1),
}

var leadingArticle = regexp.MustCompile(`^(?:The|A|An|Our|This|That|We)\s+`)

// DecisionExtractor promotes decision-tagged sentences into decisions.
type DecisionExtractor struct {
	deps
}

// NewDecisionExtractor returns an extractor using the given collaborators.
// Either collaborator may be nil.
func NewDecisionExtractor(embedder Embedder, ents EntityService, th Thresholds, logger *zap.Logger) *DecisionExtractor {
	return &DecisionExtractor{deps: newDeps(embedder, ents, th, logger)}
}

// Extract returns deduplicated decisions for the tagged segments.
func (x *DecisionExtractor) Extract(ctx context.Context, segments []transcript.Segment, tags []IntentTag) []Decision {
	return x.extract(x.newRun(ctx, segments, nil), tags)
}

func (x *DecisionExtractor) extract(r *run, tags []IntentTag) []Decision {
	th := r.th
	cands := r.candidates(tags, candidateSet{
		intent:     IntentDecision,
		minCount:   th.DecisionAugmentMin,
		augmentAt:  th.DecisionAugmentConf,
		scanWords:  decisionScanWords,
		minTagConf: th.CandidateMinScore,
	})

	decisions := []Decision{}
	seen := map[string]bool{}
	for _, c := range cands {
		d := x.detail(r, c)
		key := prefixKey(d.Text, th.PrefixLength)
		if seen[key] {
			continue
		}
		seen[key] = true
		decisions = append(decisions, d)
	}

	decisions = dedup(r, decisions, decisionMerger(th))
	for i := range decisions {
		decisions[i].Confidence = round2(decisions[i].Confidence)
	}
	return decisions
}

func (x *DecisionExtractor) detail(r *run, c candidate) Decision {
	th := r.th
	text := normalizeSpace(c.tag.Sentence)
	if c.idx >= 0 {
		for j := c.idx + 1; j < len(r.segments) && j <= c.idx+th.DecisionExtendMax; j++ {
			next := r.segments[j]
			sameSpeaker := next.Speaker != "" && next.Speaker == c.tag.Speaker
			if !sameSpeaker && !containsAny(next.Text, decisionScanWords) {
				break
			}
			text += " " + normalizeSpace(next.Text)
		}
	}

	d := Decision{
		Text:         text,
		Rationale:    trimClause(rationalePatterns.Value(text)),
		Speaker:      c.tag.Speaker,
		Participants: participants(r, c, text),
		Timestamp:    c.tag.Timestamp,
		Confidence:   c.tag.Confidence,
	}
	if title := decisionTitle(text); title != "" {
		d.Title = truncate(title, th.TitleMaxLength)
	}

	if decisionVerbPattern.MatchString(text) {
		d.Confidence = clamp01(d.Confidence + th.DecisionVerbBoost)
	}
	if len(d.Participants) > 1 {
		d.Confidence = clamp01(d.Confidence + th.MultiParticipantBoost)
	}
	return d
}

// participants is the speaker plus, when the text speaks for a group, the
// other speakers nearby.
func participants(r *run, c candidate, text string) []string {
	var names []string
	if c.tag.Speaker != "" {
		names = append(names, c.tag.Speaker)
	}
	if c.idx >= 0 && collectivePattern.MatchString(text) {
		lo, hi := max(0, c.idx-r.th.DecisionWindow), min(len(r.segments), c.idx+r.th.DecisionWindow+1)
		for _, s := range r.segments[lo:hi] {
			if s.Speaker != "" {
				names = append(names, s.Speaker)
			}
		}
	}
	names = unionNames(names)
	if len(names) == 0 {
		return []string{Unclear}
	}
	return names
}

func decisionTitle(text string) string {
	for _, s := range decisionTitlePatterns {
		v, ok := s.Try(text)
		if !ok {
			continue
		}
		v = strings.TrimSpace(leadingArticle.ReplaceAllString(v, ""))
		if v != "" && !strings.EqualFold(v, "I") {
			return v
		}
	}
	return ""
}

func decisionMerger(th Thresholds) merger[Decision] {
	return merger[Decision]{
		stage:     "decisions",
		threshold: th.DecisionDedup,
		text:      func(d Decision) string { return d.Text },
		merge:     mergeDecisions,
	}
}

func mergeDecisions(cluster []Decision) Decision {
	best := cluster[highestConfidence(cluster, func(d Decision) float64 { return d.Confidence })]
	lists := make([][]string, len(cluster))
	for i, d := range cluster {
		lists[i] = d.Participants
	}
	best.Participants = unionNames(lists...)
	return best
}
