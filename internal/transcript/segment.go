package transcript

import "strings"

// Segment is one transcribed utterance.
type Segment struct {
	Speaker   string `json:"speaker,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"text"`
}

// Label renders the segment as "Speaker: text" for prompts and logs.
func (s Segment) Label() string {
	if s.Speaker == "" {
		return s.Text
	}
	return s.Speaker + ": " + s.Text
}

// Usable drops segments whose text is blank.
func Usable(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}
