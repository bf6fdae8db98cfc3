package transcript

import (
	"regexp"
	"strings"
)

var (
	fillerPhrase = regexp.MustCompile(`(?i)(?:^|\s)(?:um+|uh+|er+|ah+|hmm+|you know|i mean|kind of|sort of)(?:[,.]?)(?:\s|$)`)
	whitespace   = regexp.MustCompile(`\s+`)
	smallTalk    = regexp.MustCompile(`(?i)^(?:hi|hello|hey|thanks|thank you|sure|okay|ok|yep|yeah|uh huh|got it|understood|makes sense|sounds good|sounds great|perfect|great)[.!]*$`)
)

// Clean collapses whitespace, strips filler words, removes immediate word
// repetitions and drops blank or small-talk-only segments.
func Clean(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		text := whitespace.ReplaceAllString(s.Text, " ")
		for {
			next := fillerPhrase.ReplaceAllString(text, " ")
			if next == text {
				break
			}
			text = next
		}
		text = strings.TrimSpace(dedupeWords(whitespace.ReplaceAllString(text, " ")))
		if text == "" || smallTalk.MatchString(text) {
			continue
		}
		s.Text = text
		out = append(out, s)
	}
	return out
}

// dedupeWords collapses "yeah yeah" and "the the" into one word.
func dedupeWords(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for i, w := range words {
		if i > 0 && strings.EqualFold(strings.Trim(w, ",.!?"), strings.Trim(words[i-1], ",.!?")) {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
