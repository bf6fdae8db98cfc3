package generative

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

const systemPrompt = `You are an expert meeting analyst. Follow the instructions exactly.
Return ONLY valid JSON. No explanations, no markdown, no additional text.
Start your response with { and end with }.`

// Kind names one of the three extraction prompts.
type Kind string

const (
	KindDecisions Kind = "decisions"
	KindActions   Kind = "action_items"
	KindRisks     Kind = "risks"
)

// Kinds lists the prompts in the order they are sent.
var Kinds = []Kind{KindDecisions, KindActions, KindRisks}

var prompts = template.Must(template.New("prompts").Parse(`
{{define "decisions"}}Extract DECISIONS from this meeting transcript.

A decision is when participants agree on a course of action, choose between
options, approve something, conclude or finalize something, or set direction.
Questions, suggestions to consider something, and "let me check" are not
decisions.

Return {"decisions": [{"text": "...", "speaker": "name or null", "participants": ["name"], "rationale": "why, or null", "confidence": 0.0}]}

Confidence: 0.9 when explicitly stated, 0.7 when implied, 0.4 when ambiguous.

Transcript:
{{.Context}}
{{end}}

{{define "action_items"}}Extract ACTION ITEMS from this meeting transcript.

An action item is a specific task with an owner, a concrete action and,
when mentioned, a due date. "I'll ..." is owned by the current speaker.
"Sarah, can you ..." is owned by Sarah. Use null when nobody owns it.

Return {"action_items": [{"action": "...", "owner": "name or null", "due_date": "as spoken, or null", "priority": "high|medium|low", "confidence": 0.0}]}

Confidence: 0.9 when explicitly assigned, 0.7 when implied, 0.4 when ambiguous.

Transcript:
{{.Context}}
{{end}}

{{define "risks"}}Extract RISKS from this meeting transcript.

A risk is a potential problem, blocker, dependency, concern or delay that
could impact the work. Categories: {{.Categories}}.

Return {"risks": [{"risk": "...", "category": "one of the categories", "priority": "HIGH|MEDIUM|LOW", "mentioned_by": "name or null", "mitigation": ["..."], "confidence": 0.0}]}

Transcript:
{{.Context}}
{{end}}
`))

type promptData struct {
	Context    string
	Categories string
}

// Prompt renders the prompt for kind around the rendered transcript body.
func Prompt(kind Kind, body string) (string, error) {
	var buf bytes.Buffer
	data := promptData{Context: body, Categories: strings.Join(riskCategories, ", ")}
	if err := prompts.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", kind, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// estimateTokens approximates a token count as words * 1.3.
func estimateTokens(s string) float64 {
	return float64(len(strings.Fields(s))) * 1.3
}

// BuildContext renders segments as "Speaker: text" paragraphs until the
// estimated token budget is exhausted.
func BuildContext(segments []transcript.Segment, maxTokens int) string {
	var parts []string
	var used float64
	for _, seg := range segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "Speaker"
		}
		line := speaker + ": " + seg.Text
		cost := estimateTokens(line)
		if maxTokens > 0 && used+cost > float64(maxTokens) {
			break
		}
		parts = append(parts, line)
		used += cost
	}
	return strings.Join(parts, "\n\n")
}
