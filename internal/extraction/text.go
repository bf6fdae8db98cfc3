package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	spaceRun      = regexp.MustCompile(`\s+`)
	leadingFiller = regexp.MustCompile(`(?i)^(?:so|well|um+|uh+|okay|ok|also|and|but|yeah|yes|right|like|basically|actually|just|i think|i mean|i guess|you know|honestly|now)\b[,\s]*`)
)

// normalizeSpace collapses whitespace runs and trims the ends.
func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// capitalize upper-cases the first letter.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// stripFillers removes leading conversational filler words.
func stripFillers(s string) string {
	s = normalizeSpace(s)
	for {
		next := leadingFiller.ReplaceAllString(s, "")
		if next == s || next == "" {
			return s
		}
		s = next
	}
}

// trimClause drops surrounding whitespace and trailing punctuation.
func trimClause(s string) string {
	return strings.TrimRight(normalizeSpace(s), ".,;:!? ")
}

// truncate shortens s to n runes and adds an ellipsis when it was longer.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

// prefixKey is the lowercase first n runes of s, used for literal dedup.
func prefixKey(s string, n int) string {
	s = strings.ToLower(normalizeSpace(s))
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// appendUnique adds values whose prefix key is not already present.
func appendUnique(dst []string, n int, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[prefixKey(v, n)] = true
	}
	for _, v := range values {
		if v == "" {
			continue
		}
		if k := prefixKey(v, n); !seen[k] {
			seen[k] = true
			dst = append(dst, v)
		}
	}
	return dst
}

// wordsPattern matches any of words as whole words, case-insensitively.
func wordsPattern(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
