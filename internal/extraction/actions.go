package extraction

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// actionTextPatterns are tried in order: explicit requests, then
// obligations, then first-person commitments.
var actionTextPatterns = Chain[string]{
	regexStrategy("request", regexp.MustCompile(`(?i)\b(?:can|could|would|will)\s+you\s+(?:please\s+)?(.+)`), 1),
	regexStrategy("like_you_to", regexp.MustCompile(`(?i)\bI(?:'d|\s+would)\s+like\s+you\s+to\s+(.+)`), 1),
	regexStrategy("need_you_to", regexp.MustCompile(`(?i)\bI\s+need\s+you\s+to\s+(.+)`), 1),
	regexStrategy("please", regexp.MustCompile(`(?i)\bplease\s+(.+)`), 1),
	regexStrategy("obligation", regexp.MustCompile(`(?i)\b(?:will|needs?\s+to|should|must|has\s+to|have\s+to|(?:is|are)\s+going\s+to)\s+(.+)`), 1),
	regexStrategy("first_person", regexp.MustCompile(`(?i)\b(?:I'll|we'll|I'm\s+going\s+to|let\s+me|let's)\s+(.+)`), 1),
}

var (
	purposeClause = regexp.MustCompile(`(?i)\b(for\s+(?:the|our|this|next|a|an)\s+[\w-]+(?:\s+[\w-]+){0,3})\s*[.!?]?\s*$`)
	contactName   = regexp.MustCompile(`(?i:account\s+manager|contact|email)(?:\s+is|\s+was|:|,)?\s+` + namePattern)
	detailClause  = regexp.MustCompile(`(?i)\(|\bfor\b|\bby\b`)
)

// contactMentions are tried in order so a role wins over the verb "email".
var contactMentions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\baccount\s+manager\b`),
	regexp.MustCompile(`(?i)\bcontact\b`),
	regexp.MustCompile(`(?i)\bemail\b`),
}

// ActionExtractor promotes action-tagged sentences into action items.
type ActionExtractor struct {
	deps
}

// NewActionExtractor returns an extractor using the given collaborators.
// Either collaborator may be nil.
func NewActionExtractor(embedder Embedder, ents EntityService, th Thresholds, logger *zap.Logger) *ActionExtractor {
	return &ActionExtractor{deps: newDeps(embedder, ents, th, logger)}
}

// Extract returns merged action items for the tagged segments.
func (x *ActionExtractor) Extract(ctx context.Context, segments []transcript.Segment, tags []IntentTag) []Action {
	return x.extract(x.newRun(ctx, segments, nil), tags)
}

func (x *ActionExtractor) extract(r *run, tags []IntentTag) []Action {
	th := r.th
	cands := r.candidates(tags, candidateSet{
		intent:     IntentAction,
		minCount:   th.ActionAugmentMin,
		augmentAt:  th.ActionAugmentConf,
		scanWords:  actionScanWords,
		minTagConf: th.CandidateMinScore,
	})

	actions := []Action{}
	for _, c := range cands {
		actions = append(actions, x.fromCandidate(r, c)...)
	}

	actions = dedup(r, actions, actionMerger(th))
	for i := range actions {
		actions[i].Confidence = round2(actions[i].Confidence)
	}
	return actions
}

func (x *ActionExtractor) fromCandidate(r *run, c candidate) []Action {
	th := r.th
	sentence := normalizeSpace(c.tag.Sentence)
	window := r.window(c.idx, th.ActionWindow, sentence)
	owner := r.resolveOwner(sentence, c.tag.Speaker, c.idx, window)

	if clauses := SplitCompound(sentence); len(clauses) >= 2 {
		out := make([]Action, 0, len(clauses))
		for _, cl := range clauses {
			clauseOwner := cl.Owner
			if clauseOwner == "" {
				clauseOwner = owner
			}
			a := x.detail(r, c, cl.Text, clauseOwner, window)
			a.Confidence = th.CompoundBase
			if a.Owner != Unclear {
				a.Confidence += th.CompoundOwnerBoost
			}
			if a.DueDate != "" {
				a.Confidence += th.CompoundDueBoost
			}
			a.Confidence = clamp01(a.Confidence)
			out = append(out, a)
		}
		return out
	}

	a := x.detail(r, c, sentence, owner, window)
	conf := c.tag.Confidence
	if actionVerbPattern.MatchString(a.Action) {
		conf += th.ActionVerbBoost
	}
	resolved := a.Owner != Unclear
	if !resolved && !assignmentCue.MatchString(window) {
		conf = max(conf-th.UnassignedPenalty, th.ActionConfidenceFloor)
	}
	if resolved {
		conf += th.OwnerBoost
	}
	if a.DueDate != "" {
		conf += th.DueDateBoost
	}
	if len(a.Action) > th.DetailMinLength && detailClause.MatchString(a.Action) {
		conf += th.DetailBoost
	}
	a.Confidence = clamp01(conf)
	return []Action{a}
}

// detail builds one action item from a sentence or clause.
func (x *ActionExtractor) detail(r *run, c candidate, text, owner, window string) Action {
	action := actionText(text, owner)

	if !strings.Contains(strings.ToLower(action), " for ") {
		if m := purposeClause.FindStringSubmatch(r.origin(c.idx, text)); m != nil && !strings.Contains(strings.ToLower(action), strings.ToLower(m[1])) {
			action += " " + trimClause(m[1])
		}
	}
	action = withContactName(action, window)
	if _, full := dateMatch(action); full == "" {
		if _, full := dateMatch(text); full != "" && !strings.Contains(strings.ToLower(action), strings.ToLower(full)) {
			action += " " + full
		}
	}

	return Action{
		Action:   action,
		Owner:    owner,
		DueDate:  dueDate(text, window),
		Priority: ActionPriority(window),
	}
}

// actionText extracts the imperative part of text, falling back to text
// with the owner's name removed from the front.
func actionText(text, owner string) string {
	v := actionTextPatterns.Value(text)
	if v == "" {
		v = stripLeadingName(text, owner)
	}
	v = stripFillers(trimClause(v))
	if v == "" {
		v = trimClause(text)
	}
	return capitalize(v)
}

// stripLeadingName removes an addressed owner ("Ana, send the notes") from
// the start of text. The name must be followed by a separator, so "Ed"
// leaves "Edge cases" alone. Matching is rune-aware and case-insensitive.
func stripLeadingName(text, owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" || owner == Unclear {
		return text
	}
	re, err := regexp.Compile(`(?i)^` + regexp.QuoteMeta(owner) + `[\s,:]+`)
	if err != nil {
		return text
	}
	loc := re.FindStringIndex(text)
	if loc == nil || loc[1] == len(text) {
		return text
	}
	return text[loc[1]:]
}

// withContactName inserts a name found next to a contact mention in the
// context, as in "Email the account manager (Priya)".
func withContactName(action, window string) string {
	var loc []int
	for _, re := range contactMentions {
		if loc = re.FindStringIndex(action); loc != nil {
			break
		}
	}
	if loc == nil || strings.Contains(action, "(") {
		return action
	}
	m := contactName.FindStringSubmatch(window)
	if m == nil {
		return action
	}
	name, ok := nameIfLike(m[1])
	if !ok || strings.Contains(action, name) {
		return action
	}
	return action[:loc[1]] + " (" + name + ")" + action[loc[1]:]
}

// actionMerger only merges items with the same owner.
func actionMerger(th Thresholds) merger[Action] {
	return merger[Action]{
		stage:     "actions",
		threshold: th.ActionMerge,
		text:      func(a Action) string { return a.Action },
		sameGroup: func(a, b Action) bool { return strings.EqualFold(a.Owner, b.Owner) },
		merge:     mergeActions,
	}
}

func mergeActions(cluster []Action) Action {
	out := cluster[0]
	texts := make([]string, 0, len(cluster))
	for _, a := range cluster {
		texts = absorbText(texts, a.Action)
		if prioritySeverity(a.Priority) > prioritySeverity(out.Priority) {
			out.Priority = a.Priority
		}
		if a.Confidence > out.Confidence {
			out.Confidence = a.Confidence
		}
		if out.DueDate == "" {
			out.DueDate = a.DueDate
		}
	}
	out.Action = strings.Join(texts, " and ")
	return out
}

// absorbText adds text to texts unless an existing entry already contains it.
// Entries contained in text are replaced by it, so re-merging a joined action
// with one of its members yields the same join.
func absorbText(texts []string, text string) []string {
	k := strings.ToLower(strings.TrimSpace(text))
	if k == "" {
		return texts
	}
	out := make([]string, 0, len(texts)+1)
	placed := false
	for _, t := range texts {
		tk := strings.ToLower(t)
		switch {
		case strings.Contains(tk, k):
			return texts
		case strings.Contains(k, tk):
			if !placed {
				out = append(out, text)
				placed = true
			}
		default:
			out = append(out, t)
		}
	}
	if !placed {
		out = append(out, text)
	}
	return out
}
