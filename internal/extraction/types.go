package extraction

import (
	"context"
	"math"

	"github.com/fyrsmithlabs/meetextract/internal/entities"
)

// Intent is a coarse semantic label for a sentence.
type Intent string

const (
	IntentDecision   Intent = "decision"
	IntentAction     Intent = "action"
	IntentRisk       Intent = "risk"
	IntentDiscussion Intent = "discussion"
)

// intentOrder fixes iteration order wherever categories are ranked.
var intentOrder = []Intent{IntentDecision, IntentAction, IntentRisk, IntentDiscussion}

// Unclear is the owner or participant used when nobody can be identified.
const Unclear = "Unclear"

// Embedder maps texts to fixed-length vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityService extracts named entities from text.
type EntityService interface {
	ExtractEntities(ctx context.Context, text string) ([]entities.Entity, error)
}

// IntentTag is one classified sentence.
type IntentTag struct {
	Sentence   string   `json:"sentence"`
	Speaker    string   `json:"speaker,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	Intents    []Intent `json:"intents"`
	Confidence float64  `json:"confidence"`
}

// Has reports whether the tag carries intent.
func (t IntentTag) Has(intent Intent) bool {
	for _, i := range t.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

// Decision is an extracted decision.
type Decision struct {
	Text         string   `json:"text"`
	Title        string   `json:"title,omitempty"`
	Rationale    string   `json:"rationale,omitempty"`
	Speaker      string   `json:"speaker,omitempty"`
	Participants []string `json:"participants"`
	Timestamp    string   `json:"timestamp,omitempty"`
	Confidence   float64  `json:"confidence"`
}

// Action priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Action is an extracted action item.
type Action struct {
	Action     string  `json:"action"`
	Owner      string  `json:"owner"`
	DueDate    string  `json:"due_date,omitempty"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

// Risk categories, in tie-break order.
const (
	CategoryTimeline  = "Timeline"
	CategoryResource  = "Resource"
	CategoryData      = "Data"
	CategoryProcess   = "Process"
	CategoryTechnical = "Technical"
	CategoryOther     = "Other"
)

// Risk priorities.
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"
)

// Risk is an extracted risk.
type Risk struct {
	Risk        string   `json:"risk"`
	Title       string   `json:"title,omitempty"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Impact      string   `json:"impact,omitempty"`
	Mitigation  []string `json:"mitigation"`
	Owner       string   `json:"owner"`
	Owners      []string `json:"owners,omitempty"`
	MentionedBy string   `json:"mentioned_by"`
	Confidence  float64  `json:"confidence"`
}

// Result holds the three record lists of one extraction run.
type Result struct {
	Decisions []Decision `json:"decisions"`
	Actions   []Action   `json:"action_items"`
	Risks     []Risk     `json:"risks"`
	Stats     Stats      `json:"stats"`
}

// Result sources.
const (
	SourceHeuristic  = "heuristic"
	SourceGenerative = "generative"
)

// Stats summarizes how a run went.
type Stats struct {
	Source      string                `json:"source,omitempty"`
	Segments    int                   `json:"segments"`
	Sentences   int                   `json:"sentences"`
	KeywordOnly bool                  `json:"keyword_only"`
	Degraded    map[FailureReason]int `json:"degraded,omitempty"`
}

// EmptyResult returns a result with non-nil, empty lists.
func EmptyResult() *Result {
	return &Result{
		Decisions: []Decision{},
		Actions:   []Action{},
		Risks:     []Risk{},
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func round2(x float64) float64 {
	return math.Round(clamp01(x)*100) / 100
}
