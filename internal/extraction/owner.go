package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fyrsmithlabs/meetextract/internal/entities"
)

const namePattern = `([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`

// Assignment forms that name the owner directly.
var assignmentNamePatterns = Chain[string]{
	regexStrategy("addressed", regexp.MustCompile(`\b`+namePattern+`\s*,\s*(?:can|could|would|will)\s+you\b`), 1),
	regexStrategy("assigned_to", regexp.MustCompile(`(?i:\bassigned\s+to)\s+`+namePattern), 1),
	regexStrategy("responsible", regexp.MustCompile(`\b`+namePattern+`\s+(?:is|are)\s+responsible\s+for\b`), 1),
}

var (
	firstPersonCue = regexp.MustCompile(`(?i)\b(?:I'll|I will|I need to|I'm going to|I am going to|I can|let me)\b`)
	pronounPrefix  = regexp.MustCompile(`(?i)^(?:I|we|you|they|he|she)\b`)
)

// entityAssignment builds the assignment forms for a known person name.
func entityAssignment(name string) *regexp.Regexp {
	q := regexp.QuoteMeta(name)
	return regexp.MustCompile(`(?i)(?:\b` + q + `\s*,?\s+(?:will|can|could|should|would|must|needs?\s+to|is\s+going\s+to)\b|\bassigned\s+to\s+` + q + `\b|\b` + q + `\s+(?:is|are)\s+responsible\b)`)
}

// IsNameLike accepts one to three words whose first word is capitalized,
// longer than one character and not a pronoun or other common word.
func IsNameLike(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	first := strings.TrimRight(words[0], ".,;:!?")
	r, _ := utf8.DecodeRuneInString(first)
	return utf8.RuneCountInString(first) > 1 && unicode.IsUpper(r) && !entities.IsNotName(first)
}

// nameIfLike drops leading non-name words such as greetings before testing.
func nameIfLike(s string) (string, bool) {
	words := strings.Fields(trimClause(s))
	for len(words) > 1 && entities.IsNotName(words[0]) {
		words = words[1:]
	}
	s = strings.Join(words, " ")
	return s, IsNameLike(s)
}

// resolveOwner walks the owner resolution chain for a sentence spoken by
// speaker in segment idx and returns a name or Unclear. window is the
// surrounding context; entity assignments in the origin segment win over
// those elsewhere in the window.
func (r *run) resolveOwner(sentence, speaker string, idx int, window string) string {
	local := r.origin(idx, sentence)
	if !strings.Contains(local, sentence) {
		local = sentence
	}

	// Entity names that appear in an assignment form.
	if n := r.entityAssignee(local); n != "" {
		return n
	}
	if window != "" && window != local {
		if n := r.entityAssignee(window); n != "" {
			return n
		}
	}

	if v := assignmentNamePatterns.Value(sentence); v != "" {
		if n, ok := nameIfLike(v); ok {
			return n
		}
	}
	if v := assignmentNamePatterns.Value(local); v != "" {
		if n, ok := nameIfLike(v); ok {
			return n
		}
	}

	if speaker != "" && firstPersonCue.MatchString(sentence) {
		return speaker
	}

	if idx >= 0 {
		for j := idx - 1; j >= 0 && j >= idx-r.th.OwnerLookback; j-- {
			seg := r.segments[j]
			if !assignmentCue.MatchString(seg.Text) {
				continue
			}
			if v := assignmentNamePatterns.Value(seg.Text); v != "" {
				if n, ok := nameIfLike(v); ok {
					return n
				}
			}
			if seg.Speaker != "" {
				return seg.Speaker
			}
		}
	}

	if speaker != "" {
		return speaker
	}
	return Unclear
}

// entityAssignee returns the first PERSON entity in text that appears in an
// assignment form, or "".
func (r *run) entityAssignee(text string) string {
	for _, name := range r.persons(text) {
		if n, ok := nameIfLike(name); ok && entityAssignment(name).MatchString(text) {
			return n
		}
	}
	return ""
}

// ownerFromClause returns a name that opens a clause as its subject, as in
// "Sarah will draft the memo", or "".
func ownerFromClause(clause string) string {
	m := clauseSubject.FindStringSubmatch(clause)
	if m == nil || pronounPrefix.MatchString(m[1]) {
		return ""
	}
	if n, ok := nameIfLike(m[1]); ok {
		return n
	}
	return ""
}

var clauseSubject = regexp.MustCompile(`^\s*` + namePattern + `\s+(?:will|should|can|must|needs?\s+to|is\s+going\s+to)\b`)
