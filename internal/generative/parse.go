package generative

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
)

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

var riskCategories = []string{
	extraction.CategoryTimeline,
	extraction.CategoryResource,
	extraction.CategoryData,
	extraction.CategoryProcess,
	extraction.CategoryTechnical,
	extraction.CategoryOther,
}

// rawDecision and friends mirror the JSON contract. Pointers tell an
// explicit null from a missing field where it matters.
type rawDecision struct {
	Text         string     `json:"text"`
	Title        *string    `json:"title"`
	Rationale    *string    `json:"rationale"`
	Speaker      *string    `json:"speaker"`
	Participants stringList `json:"participants"`
	Timestamp    *string    `json:"timestamp"`
	Confidence   *float64   `json:"confidence"`
}

type rawAction struct {
	Action     string   `json:"action"`
	Owner      *string  `json:"owner"`
	DueDate    *string  `json:"due_date"`
	Priority   string   `json:"priority"`
	Confidence *float64 `json:"confidence"`
}

type rawRisk struct {
	Risk        string     `json:"risk"`
	Title       *string    `json:"title"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Impact      *string    `json:"impact"`
	Mitigation  stringList `json:"mitigation"`
	Owner       *string    `json:"owner"`
	Owners      stringList `json:"owners"`
	MentionedBy *string    `json:"mentioned_by"`
	Confidence  *float64   `json:"confidence"`
}

// stringList accepts either a JSON array of strings or a single string,
// since models collapse one-element lists.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one *string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = nil
		if v := str(one); v != "" {
			*l = stringList{v}
		}
		return nil
	}
	var many []*string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or an array of strings: %w", err)
	}
	out := make(stringList, 0, len(many))
	for _, p := range many {
		if v := str(p); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

type rawResponse struct {
	Decisions []rawDecision `json:"decisions"`
	Actions   []rawAction   `json:"action_items"`
	Risks     []rawRisk     `json:"risks"`
}

// extractJSON strips code fences and any prose around the outermost object.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in response", ErrBadResponse)
	}
	return text[start : end+1], nil
}

// parseResponse decodes a model answer into the raw contract.
func parseResponse(text string) (*rawResponse, error) {
	body, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var raw rawResponse
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &raw, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	s := strings.TrimSpace(*p)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

func confidence(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return clamp01(*p)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func (r rawDecision) record() (extraction.Decision, bool) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return extraction.Decision{}, false
	}
	return extraction.Decision{
		Text:         text,
		Title:        str(r.Title),
		Rationale:    str(r.Rationale),
		Speaker:      str(r.Speaker),
		Participants: []string(r.Participants),
		Timestamp:    str(r.Timestamp),
		Confidence:   confidence(r.Confidence, 0.7),
	}, true
}

func (r rawAction) record() (extraction.Action, bool) {
	text := strings.TrimSpace(r.Action)
	if text == "" {
		return extraction.Action{}, false
	}
	owner := str(r.Owner)
	if owner == "" {
		owner = extraction.Unclear
	}
	priority := strings.ToLower(strings.TrimSpace(r.Priority))
	switch priority {
	case extraction.PriorityHigh, extraction.PriorityMedium, extraction.PriorityLow:
	default:
		priority = extraction.ActionPriority(text)
	}
	return extraction.Action{
		Action:     text,
		Owner:      owner,
		DueDate:    str(r.DueDate),
		Priority:   priority,
		Confidence: confidence(r.Confidence, 0.7),
	}, true
}

func (r rawRisk) record() (extraction.Risk, bool) {
	text := strings.TrimSpace(r.Risk)
	if text == "" {
		return extraction.Risk{}, false
	}
	category := extraction.Categorize(text)
	for _, c := range riskCategories {
		if strings.EqualFold(c, strings.TrimSpace(r.Category)) {
			category = c
			break
		}
	}
	priority := strings.ToUpper(strings.TrimSpace(r.Priority))
	switch priority {
	case extraction.RiskHigh, extraction.RiskMedium, extraction.RiskLow:
	default:
		priority = extraction.RiskPriority(text)
	}
	return extraction.Risk{
		Risk:        text,
		Title:       str(r.Title),
		Category:    category,
		Priority:    priority,
		Impact:      str(r.Impact),
		Mitigation:  []string(r.Mitigation),
		Owner:       str(r.Owner),
		Owners:      []string(r.Owners),
		MentionedBy: str(r.MentionedBy),
		Confidence:  confidence(r.Confidence, 0.7),
	}, true
}
