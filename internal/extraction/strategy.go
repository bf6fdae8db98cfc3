package extraction

import (
	"regexp"
	"strings"
)

// Strategy is one way of pulling a value out of an input.
type Strategy[In any] struct {
	Name string
	Try  func(In) (string, bool)
}

// Chain tries strategies in order until one succeeds.
type Chain[In any] []Strategy[In]

// First returns the first successful value and the name of the strategy
// that produced it.
func (c Chain[In]) First(in In) (value, name string, ok bool) {
	for _, s := range c {
		if v, ok := s.Try(in); ok {
			return v, s.Name, true
		}
	}
	return "", "", false
}

// Value is First without the strategy name.
func (c Chain[In]) Value(in In) string {
	v, _, _ := c.First(in)
	return v
}

// regexStrategy returns the trimmed capture group of the first match.
// Group 0 means the whole match.
func regexStrategy(name string, re *regexp.Regexp, group int) Strategy[string] {
	return Strategy[string]{
		Name: name,
		Try: func(text string) (string, bool) {
			m := re.FindStringSubmatch(text)
			if m == nil || group >= len(m) {
				return "", false
			}
			v := strings.TrimSpace(m[group])
			return v, v != ""
		},
	}
}

// fixedStrategy returns value when re matches anywhere.
func fixedStrategy(name string, re *regexp.Regexp, value string) Strategy[string] {
	return Strategy[string]{
		Name: name,
		Try: func(text string) (string, bool) {
			return value, re.MatchString(text)
		},
	}
}
