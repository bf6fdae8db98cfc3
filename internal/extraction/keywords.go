package extraction

import (
	"regexp"
	"strings"
)

// Keyword tables are built once at package init and never mutated.

// intentExamples are canonical phrases averaged into one centroid per intent.
var intentExamples = map[Intent][]string{
	IntentDecision: {
		"we decided to proceed with the plan",
		"we agreed to move forward",
		"the team approved the proposal",
		"we concluded that we should",
		"it was decided that",
		"we finalized the approach",
		"we settled on",
	},
	IntentAction: {
		"john will handle the deployment",
		"i will send the report by friday",
		"we need to complete the review",
		"sarah is responsible for the dashboard",
		"the team will follow up next week",
		"i'll take care of the documentation",
	},
	IntentRisk: {
		"there's a risk of delay",
		"we're concerned about the timeline",
		"this could be a blocker",
		"we have an issue with the data",
		"there's a problem with the integration",
		"we're facing a challenge",
		"this might block us",
	},
	IntentDiscussion: {
		"what do you think about",
		"let's discuss the options",
		"i have a question about",
		"we should consider",
		"what are your thoughts",
		"how about we",
	},
}

// IntentExamples returns a copy of the canonical phrases for intent.
func IntentExamples(intent Intent) []string {
	return append([]string(nil), intentExamples[intent]...)
}

// Tagger keyword rules, checked in this order.
var tagKeywords = []struct {
	intent Intent
	words  []string
}{
	{IntentDecision, []string{"decided", "agreed", "approved", "concluded", "finalized", "settled"}},
	{IntentAction, []string{"will", "should", "need to", "assigned", "responsible", "handle", "complete"}},
	{IntentRisk, []string{"risk", "concern", "issue", "problem", "blocker", "challenge", "threat"}},
}

var (
	// Segments containing these are decision candidates during augmentation.
	decisionScanWords = []string{
		"decided", "decision", "agreed", "approved", "concluded", "finalized", "settled",
		"voted", "unanimously", "let's make", "we will", "we're going with", "push the",
		"change the", "move to",
	}

	actionScanWords = []string{
		"will", "should", "need to", "needs to", "assigned", "responsible", "handle",
		"complete", "can you", "could you", "please", "action item", "follow up", "take care of",
	}

	riskScanWords = []string{
		"risk", "concern", "worried", "issue", "problem", "blocker", "blocking", "challenge",
		"threat", "delay", "might not", "could fail", "won't have", "if we don't", "if we can't",
		"dependency", "constraint", "bottleneck", "vulnerability", "exposure", "shortfall", "deficit",
	}

	decisionVerbPattern = regexp.MustCompile(`(?i)\b(?:decided|agreed|approved|concluded|finalized|settled|voted|chose|selected)\b`)
	collectivePattern   = regexp.MustCompile(`(?i)\b(?:we|team|the group|everyone|unanimously|all of us)\b`)
	riskVocabPattern    = regexp.MustCompile(`(?i)\b(?:risks?|risky|concern(?:s|ed)?|worried|blockers?|threats?|issues?|problems?|challenges?|danger|jeopardi[sz]e)\b`)
	assignmentCue       = regexp.MustCompile(`(?i)\b(?:assign(?:ed)?|responsible|owner|owns|can you|could you|will you|please|take care of|action item|is on it|handle)\b`)
	actionVerbPattern   = regexp.MustCompile(`(?i)\b(?:send|update|coordinate|schedule|review|prepare|create|draft|contact|follow up|check|set up|write|fix|deploy|test|share|finalize|complete|handle|organi[sz]e|reach out|call|email|book|investigate|document|escalate|confirm|deliver|build|implement|run|submit|present|compile|analy[sz]e|research|assign|notify|order|move|migrate|clean up|get|make|put together|look into|circulate|publish|plan|arrange|set|ping|sync)\b`)
)

// Priority vocabularies. Low phrases are checked first so "low priority"
// does not read as high.
var (
	actionLowWords  = []string{"when possible", "nice to have", "optional", "low priority", "no rush", "whenever"}
	actionHighWords = []string{"urgent", "critical", "asap", "immediately", "priority", "important", "blocker", "blocking", "must"}

	riskHighPattern = regexp.MustCompile(`(?i)\b(?:critical|severe|major|blocker|blocking|urgent|showstopper|high(?:\s+risk|\s+priority)?|serious|significant)\b`)
	riskLowPattern  = regexp.MustCompile(`(?i)\b(?:minor|low(?:\s+risk|\s+priority)?|unlikely|small|slight|negligible)\b`)
)

// riskCategories are declared in tie-break order.
var riskCategories = []struct {
	name  string
	words []string
}{
	{CategoryTimeline, []string{"delay", "deadline", "schedule", "timeline", "launch", "date", "late", "slip", "behind", "postpone", "week", "month"}},
	{CategoryResource, []string{"budget", "staff", "person", "capacity", "resource", "team", "engineer", "headcount", "hire", "hiring", "leave", "bandwidth", "cost", "support"}},
	{CategoryData, []string{"data", "database", "migration", "privacy", "gdpr", "backup", "record", "quality", "loss", "corrupt", "pii"}},
	{CategoryProcess, []string{"process", "approval", "audit", "compliance", "workflow", "handoff", "communication", "stakeholder", "sign-off", "policy", "procedure", "legal"}},
	{CategoryTechnical, []string{"integration", "performance", "bug", "system", "api", "technical", "security", "infrastructure", "outage", "latency", "scalability", "server"}},
}

var riskCategoryPatterns = func() [][]*regexp.Regexp {
	out := make([][]*regexp.Regexp, len(riskCategories))
	for i, c := range riskCategories {
		for _, w := range c.words {
			out[i] = append(out[i], regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)))
		}
	}
	return out
}()

// Domain keywords used to synthesize risk titles, in preference order.
var riskTitleDomains = []string{
	"integration", "audit", "compliance", "performance", "security",
	"support", "budget", "feature", "capacity", "infrastructure",
}

var delayVocab = regexp.MustCompile(`(?i)\b(?:delay(?:s|ed)?|late|slip(?:s|ped|page)?|behind|postpone[sd]?|timeline|deadline|push(?:ed)? back)\b`)

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
