// Package entities recognizes named entities in transcript text.
//
// RuleBased is a dependency-free recognizer for the PERSON category, which is
// the only type the extraction pipeline consumes. Other recognizers plug in by
// satisfying Recognizer.
package entities

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Entity types.
const (
	TypePerson = "PERSON"
	TypeRole   = "ROLE"
)

// Entity is a span of text tagged with a type.
type Entity struct {
	Text  string `json:"text"`
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// IsPerson reports whether the entity is person-like (PER or PERSON).
func (e Entity) IsPerson() bool {
	t := strings.ToUpper(e.Type)
	return t == "PER" || t == TypePerson
}

// Recognizer extracts entities from text.
type Recognizer interface {
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
}

var (
	// Two capitalized words, e.g. "Sarah Chen".
	fullNamePattern = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
	// A single capitalized word directly addressed or assigned.
	addressedPattern = regexp.MustCompile(`\b([A-Z][a-z]+)(?:,\s+(?:can|could|would|will|please)\b|\s+(?:will|should|can|needs to|is going to|is responsible)\b)`)
	assignedPattern  = regexp.MustCompile(`\b(?:assigned to|owned by|handled by|ask|have)\s+([A-Z][a-z]+)\b`)
	rolePattern      = regexp.MustCompile(`(?i)\b(?:CEO|CTO|CFO|VP(?: of [A-Z][a-z]+)?|director|manager|lead|owner)\b`)
)

// Capitalized words that start sentences but never name people.
var notNames = map[string]bool{
	"i": true, "we": true, "you": true, "they": true, "he": true, "she": true, "it": true,
	"the": true, "this": true, "that": true, "these": true, "those": true, "there": true,
	"let's": true, "lets": true, "let": true, "everyone": true, "someone": true, "team": true,
	"our": true, "my": true, "so": true, "and": true, "but": true, "also": true, "if": true,
	"what": true, "who": true, "when": true, "how": true, "why": true, "ok": true, "okay": true,
	"yes": true, "no": true, "please": true, "thanks": true, "hey": true, "hi": true, "hello": true, "monday": true, "tuesday": true,
	"wednesday": true, "thursday": true, "friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true, "june": true, "july": true,
	"august": true, "september": true, "october": true, "november": true, "december": true,
}

// IsNotName reports whether a capitalized word is a known non-name.
func IsNotName(word string) bool {
	return notNames[strings.ToLower(word)]
}

// RuleBased recognizes PERSON and ROLE entities with regular expressions.
type RuleBased struct{}

// NewRuleBased returns a rule-based recognizer.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// ExtractEntities returns entities ordered by position without overlaps.
func (r *RuleBased) ExtractEntities(_ context.Context, text string) ([]Entity, error) {
	var found []Entity

	for _, loc := range fullNamePattern.FindAllStringIndex(text, -1) {
		span := text[loc[0]:loc[1]]
		first := strings.Fields(span)[0]
		if IsNotName(first) {
			// "The Salesforce" style matches: keep only the second word.
			second := strings.Fields(span)[1]
			if !IsNotName(second) {
				found = append(found, Entity{Text: second, Type: TypePerson, Start: loc[1] - len(second), End: loc[1]})
			}
			continue
		}
		found = append(found, Entity{Text: span, Type: TypePerson, Start: loc[0], End: loc[1]})
	}

	for _, re := range []*regexp.Regexp{addressedPattern, assignedPattern} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			if IsNotName(name) {
				continue
			}
			found = append(found, Entity{Text: name, Type: TypePerson, Start: m[2], End: m[3]})
		}
	}

	for _, loc := range rolePattern.FindAllStringIndex(text, -1) {
		found = append(found, Entity{Text: text[loc[0]:loc[1]], Type: TypeRole, Start: loc[0], End: loc[1]})
	}

	return dropOverlaps(found), nil
}

// dropOverlaps keeps the earliest, then longest, entity at each position.
func dropOverlaps(in []Entity) []Entity {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Start != in[j].Start {
			return in[i].Start < in[j].Start
		}
		return in[i].End-in[i].Start > in[j].End-in[j].Start
	})
	out := make([]Entity, 0, len(in))
	end := -1
	for _, e := range in {
		if e.Start < end {
			continue
		}
		out = append(out, e)
		end = e.End
	}
	return out
}

var _ Recognizer = (*RuleBased)(nil)
