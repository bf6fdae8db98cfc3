package extraction

import (
	"regexp"
	"strings"
)

const (
	weekdays     = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	relativeDays = `tomorrow|today|tonight|noon|eod|eow|close of business|end of (?:the )?(?:day|week|month|quarter|year|sprint)`
	periods      = `week|month|quarter|year|sprint`
	months       = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
)

// datePhrase is one date form. phrase is the capture reported as the due
// date; the whole match is what gets appended to action text.
type datePhrase struct {
	name   string
	re     *regexp.Regexp
	phrase int
}

// dueDatePatterns are tried in order; the first match wins.
var dueDatePatterns = []datePhrase{
	{"by_day", regexp.MustCompile(`(?i)\b(?:by|due|before|until)\s+((?:next\s+|this\s+)?(?:` + weekdays + `|` + relativeDays + `))\b`), 1},
	{"next_this", regexp.MustCompile(`(?i)\b((?:next|this)\s+(?:` + weekdays + `|` + periods + `))\b`), 1},
	{"end_of", regexp.MustCompile(`(?i)\b(end\s+of\s+(?:the\s+)?(?:day|week|month|quarter|year|sprint))\b`), 1},
	{"numeric", regexp.MustCompile(`\b(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\b`), 1},
	{"month_day", regexp.MustCompile(`(?i)\b((?:` + months + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?)\b`), 1},
	{"within", regexp.MustCompile(`(?i)\b((?:within|in)\s+(?:\d+|a|one|two|three|four|a couple of)\s+(?:days?|weeks?|months?))\b`), 1},
	{"on_day", regexp.MustCompile(`(?i)\bon\s+(` + weekdays + `)\b`), 1},
	{"deadline", regexp.MustCompile(`(?i)\b(?:deadline|due date)\s*(?:is|:)\s*([^.,;!?\n]{2,40})`), 1},
}

const eodTomorrow = "end of day tomorrow"

// dateMatch returns the due-date phrase and the full matched expression.
func dateMatch(text string) (phrase, full string) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "end of day") && strings.Contains(lower, "tomorrow") {
		return eodTomorrow, "by " + eodTomorrow
	}
	for _, p := range dueDatePatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return trimClause(m[p.phrase]), trimClause(m[0])
		}
	}
	return "", ""
}

// ExtractDueDate returns the first date or time phrase in text, or "".
func ExtractDueDate(text string) string {
	phrase, _ := dateMatch(text)
	return phrase
}

// dueDate prefers a date stated in the sentence over one in its context.
func dueDate(sentence, window string) string {
	if d := ExtractDueDate(sentence); d != "" {
		return d
	}
	return ExtractDueDate(window)
}
