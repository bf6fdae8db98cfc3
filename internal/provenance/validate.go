package provenance

import (
	"context"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
)

// Validation is the support verdict for one extracted item.
type Validation struct {
	Supported             bool    `json:"supported"`
	Support               float64 `json:"support"`
	SupportingSegments    int     `json:"supporting_segments"`
	PossibleHallucination bool    `json:"possible_hallucination"`
	Status                string  `json:"status"`
}

// Statuses reported in Validation.Status.
const (
	StatusSupported = "well supported by source"
	StatusWeak      = "weak support in source"
	StatusSuspect   = "low similarity to source, possible hallucination"
)

// Validate turns the best source similarity into a verdict.
func (t *Tracker) Validate(sources []Source) Validation {
	best := 0.0
	for _, s := range sources {
		best = max(best, s.Similarity)
	}
	v := Validation{
		Support:               best,
		SupportingSegments:    len(sources),
		Supported:             best >= t.cfg.SupportedAbove,
		PossibleHallucination: best < t.cfg.SuspiciousBelow,
	}
	switch {
	case v.PossibleHallucination:
		v.Status = StatusSuspect
	case v.Supported:
		v.Status = StatusSupported
	default:
		v.Status = StatusWeak
	}
	return v
}

// Item is the provenance of one extracted record.
type Item struct {
	// Kind is decision, action or risk.
	Kind       string     `json:"kind"`
	Index      int        `json:"index"`
	Text       string     `json:"text"`
	Sources    []Source   `json:"sources"`
	Validation Validation `json:"validation"`
}

// Summary aggregates provenance over a whole result.
type Summary struct {
	Items                  []Item  `json:"items"`
	WithSources            int     `json:"with_sources"`
	AverageSimilarity      float64 `json:"average_similarity"`
	PossibleHallucinations int     `json:"possible_hallucinations"`
}

// Coverage is the share of items with at least one source.
func (s Summary) Coverage() float64 {
	if len(s.Items) == 0 {
		return 0
	}
	return float64(s.WithSources) / float64(len(s.Items))
}

// Annotate looks up sources for every record in res.
func (t *Tracker) Annotate(ctx context.Context, runID string, res *extraction.Result) Summary {
	ctx, span := tracer.Start(ctx, "provenance.annotate")
	defer span.End()

	sum := Summary{Items: []Item{}}
	if res == nil {
		return sum
	}
	add := func(kind string, i int, text string) {
		sources := t.Sources(ctx, runID, text)
		sum.Items = append(sum.Items, Item{
			Kind:       kind,
			Index:      i,
			Text:       text,
			Sources:    sources,
			Validation: t.Validate(sources),
		})
	}
	for i, d := range res.Decisions {
		add("decision", i, d.Text)
	}
	for i, a := range res.Actions {
		add("action", i, a.Action)
	}
	for i, r := range res.Risks {
		add("risk", i, r.Risk)
	}

	var total float64
	var n int
	for _, it := range sum.Items {
		if len(it.Sources) > 0 {
			sum.WithSources++
		}
		for _, s := range it.Sources {
			total += s.Similarity
			n++
		}
		if it.Validation.PossibleHallucination {
			sum.PossibleHallucinations++
		}
	}
	if n > 0 {
		sum.AverageSimilarity = total / float64(n)
	}
	return sum
}
