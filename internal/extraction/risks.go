package extraction

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/entities"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// nameList matches "Ana", "Ana and Ben" or "Ana, Ben, and Cy".
const nameList = `([A-Z][a-z]+(?:\s*,\s*[A-Z][a-z]+)*(?:\s*,?\s+and\s+[A-Z][a-z]+)?)`

var riskTitlePatterns = Chain[string]{
	regexStrategy("before_risk_word", regexp.MustCompile(`((?:[A-Z][\w-]*\s+){1,4})(?i:risks?|delays?|issues?|concerns?|blockers?|problems?)\b`), 1),
	regexStrategy("after_risk_word", regexp.MustCompile(`(?i:\b(?:risks?|concerns?|issues?|problems?)\s+(?:with|around|about|in|on|to|for)\s+(?:the\s+)?)((?:[A-Z][\w-]*\s*){1,4})`), 1),
}

var riskRederivePatterns = Chain[string]{
	regexStrategy("risk_is", regexp.MustCompile(`(?i)\brisk\s+(?:is|that|of)\s+([^.!?]+)`), 1),
	regexStrategy("if", regexp.MustCompile(`(?i)\b(if\s+[^.!?]+)`), 1),
	regexStrategy("could_result", regexp.MustCompile(`(?i)([^.!?]*\b(?:could|might|may|would|will)\s+(?:result|lead|cause|affect)[^.!?]*)`), 1),
}

var impactPatterns = Chain[string]{
	regexStrategy("impact_label", regexp.MustCompile(`(?i)\bimpact\s*:\s*([^.!?\n]+)`), 1),
	regexStrategy("result_in", regexp.MustCompile(`(?i)\b(?:could|would|might|may|will)\s+result\s+in\s+([^.!?\n]+)`), 1),
	regexStrategy("lead_to", regexp.MustCompile(`(?i)\b(?:could|would|might|may|will)\s+lead\s+to\s+([^.!?\n]+)`), 1),
	regexStrategy("cause", regexp.MustCompile(`(?i)\b(?:could|would|might|may|will)\s+cause\s+([^.!?\n]+)`), 1),
	regexStrategy("if_happens", regexp.MustCompile(`(?i)\bif\s+this\s+happens,?\s+([^.!?\n]+)`), 1),
}

var (
	mitigationFor    = regexp.MustCompile(`(?i)\bfor\s+[\w\s-]{2,40}?:\s*([^.\n]+)`)
	mitigationBullet = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	mitigationWe     = regexp.MustCompile(`(?i)\b(we\s+(?:are|will|can|should|could|plan\s+to|need\s+to|'ll|'re)\s+[^.!?\n]+)`)

	ownerPatterns = []*regexp.Regexp{
		regexp.MustCompile(nameList + `\s+(?:will|to|should|can)\s+(?:own|handle|monitor|mitigate|track|look\s+into|take|follow\s+up|manage|address)\b`),
		regexp.MustCompile(`(?i:\bowners?\s*(?:is|are|:))\s*` + nameList),
		regexp.MustCompile(`(?i:\bassigned\s+to)\s+` + nameList),
	}
	nameListSplit = regexp.MustCompile(`\s*,\s*(?:and\s+)?|\s+and\s+`)

	riskTitleDomainPatterns = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(riskTitleDomains))
		for i, kw := range riskTitleDomains {
			out[i] = wordsPattern([]string{kw})
		}
		return out
	}()
)

// RiskExtractor promotes risk-tagged sentences into risks.
type RiskExtractor struct {
	deps
}

// NewRiskExtractor returns an extractor using the given collaborators.
// Either collaborator may be nil.
func NewRiskExtractor(embedder Embedder, ents EntityService, th Thresholds, logger *zap.Logger) *RiskExtractor {
	return &RiskExtractor{deps: newDeps(embedder, ents, th, logger)}
}

// Extract returns deduplicated risks for the tagged segments.
func (x *RiskExtractor) Extract(ctx context.Context, segments []transcript.Segment, tags []IntentTag) []Risk {
	return x.extract(x.newRun(ctx, segments, nil), tags)
}

func (x *RiskExtractor) extract(r *run, tags []IntentTag) []Risk {
	th := r.th
	cands := r.candidates(tags, candidateSet{
		intent:     IntentRisk,
		minCount:   th.RiskAugmentMin,
		augmentAt:  th.RiskAugmentConf,
		scanWords:  riskScanWords,
		minTagConf: th.CandidateMinScore,
	})

	risks := []Risk{}
	for _, c := range cands {
		risks = append(risks, x.detail(r, c))
	}

	risks = dedup(r, risks, riskMerger(th))
	for i := range risks {
		risks[i].Confidence = round2(risks[i].Confidence)
	}
	return risks
}

func (x *RiskExtractor) detail(r *run, c candidate) Risk {
	th := r.th
	sentence := normalizeSpace(c.tag.Sentence)
	window := r.window(c.idx, th.RiskWindow, sentence)
	origin := r.origin(c.idx, sentence)

	k := Risk{
		Risk:        riskDescription(sentence, window, th.MinRiskLength),
		Title:       truncate(riskTitle(sentence, window), th.TitleMaxLength),
		Category:    Categorize(origin),
		Priority:    RiskPriority(origin),
		Impact:      trimClause(impactPatterns.Value(origin)),
		Mitigation:  mitigations(r, c, sentence),
		MentionedBy: c.tag.Speaker,
		Confidence:  c.tag.Confidence,
	}
	if k.Impact == "" {
		k.Impact = trimClause(impactPatterns.Value(window))
	}
	if k.MentionedBy == "" {
		k.MentionedBy = Unclear
	}

	owners := riskOwners(window)
	if len(owners) == 0 {
		owners = []string{r.resolveOwner(sentence, c.tag.Speaker, c.idx, window)}
	}
	k.Owner = owners[0]
	if len(owners) > 1 {
		k.Owners = owners
	}

	if riskVocabPattern.MatchString(sentence) {
		k.Confidence += th.RiskVocabBoost
	}
	if len(k.Mitigation) > 0 {
		k.Confidence += th.MitigationBoost
	}
	if k.Impact != "" {
		k.Confidence += th.ImpactBoost
	}
	if k.Title != "" {
		k.Confidence += th.TitleBoost
	}
	k.Confidence = clamp01(k.Confidence)
	return k
}

// riskDescription cleans the sentence and re-derives it from context when
// what remains is too short.
func riskDescription(sentence, window string, minLen int) string {
	desc := capitalize(trimClause(stripFillers(sentence)))
	if len(desc) >= minLen {
		return desc
	}
	if v := trimClause(riskRederivePatterns.Value(window)); len(v) > len(desc) {
		return capitalize(v)
	}
	return desc
}

// riskTitle names the risk from a capitalized phrase next to a risk word,
// or from a domain keyword in context plus a Delay or Issues suffix.
func riskTitle(sentence, window string) string {
	for _, s := range riskTitlePatterns {
		v, ok := s.Try(sentence)
		if !ok {
			continue
		}
		words := strings.Fields(leadingArticle.ReplaceAllString(v, ""))
		if len(words) > 0 && !(len(words) == 1 && entities.IsNotName(words[0])) {
			return strings.Join(words, " ") + titleSuffix(sentence, v)
		}
	}
	for i, kw := range riskTitleDomains {
		if riskTitleDomainPatterns[i].MatchString(window) {
			suffix := " Issues"
			if delayVocab.MatchString(window) {
				suffix = " Delay"
			}
			return capitalize(kw) + suffix
		}
	}
	return ""
}

// titleSuffix re-attaches the risk word a before_risk_word match consumed.
func titleSuffix(sentence, phrase string) string {
	i := strings.Index(sentence, phrase)
	if i < 0 {
		return ""
	}
	rest := strings.Fields(sentence[i+len(phrase):])
	if len(rest) == 0 {
		return ""
	}
	w := strings.ToLower(trimClause(rest[0]))
	if riskVocabPattern.MatchString(w) || delayVocab.MatchString(w) {
		return " " + capitalize(w)
	}
	return ""
}

// mitigations collects up to the configured number of distinct plans from
// the origin segment and the segments after it, skipping clauses that only
// restate a risk.
func mitigations(r *run, c candidate, sentence string) []string {
	th := r.th
	out := []string{}
	var texts []string
	if c.idx < 0 {
		texts = []string{sentence}
	} else {
		texts = append(texts, strings.Replace(r.segments[c.idx].Text, c.tag.Sentence, " ", 1))
		for j := c.idx + 1; j < len(r.segments) && j <= c.idx+th.MitigationLookahead; j++ {
			texts = append(texts, r.segments[j].Text)
		}
	}

	add := func(v string) {
		v = capitalize(trimClause(v))
		if len(v) < 5 || riskVocabPattern.MatchString(v) || len(out) >= th.MaxMitigations {
			return
		}
		out = appendUnique(out, th.PrefixLength, v)
	}
	for _, t := range texts {
		for _, m := range mitigationFor.FindAllStringSubmatch(t, -1) {
			add(m[1])
		}
		for _, m := range mitigationBullet.FindAllStringSubmatch(t, -1) {
			add(m[1])
		}
		for _, m := range mitigationWe.FindAllStringSubmatch(t, -1) {
			add(m[1])
		}
	}
	return out
}

// riskOwners returns names from assignment forms and name lists in text.
func riskOwners(text string) []string {
	var out []string
	for _, re := range ownerPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, n := range nameListSplit.Split(m[1], -1) {
			if name, ok := nameIfLike(n); ok {
				out = append(out, name)
			}
		}
		if len(out) > 0 {
			return unionNames(out)
		}
	}
	return nil
}

func riskMerger(th Thresholds) merger[Risk] {
	return merger[Risk]{
		stage:     "risks",
		threshold: th.RiskDedup,
		text:      func(k Risk) string { return k.Risk },
		merge:     mergeRisks,
	}
}

func mergeRisks(cluster []Risk) Risk {
	best := cluster[highestConfidence(cluster, func(k Risk) float64 { return k.Confidence })]
	lists := make([][]string, 0, 2*len(cluster))
	lists = append(lists, []string{best.Owner}, best.Owners)
	for _, k := range cluster {
		lists = append(lists, []string{k.Owner}, k.Owners)
	}
	owners := unionNames(lists...)
	if len(owners) > 0 {
		best.Owner = owners[0]
	}
	best.Owners = nil
	if len(owners) > 1 {
		best.Owners = owners
	}
	return best
}
