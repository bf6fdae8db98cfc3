package extraction

import (
	"regexp"
	"strings"
)

var clauseConnector = regexp.MustCompile(`,\s+and\s+|\s+and\s+`)

// Clause is one action-bearing part of a compound sentence. Owner is empty
// when the clause names no subject of its own.
type Clause struct {
	Text  string
	Owner string
}

// SplitCompound splits a sentence joined by "and" into action clauses.
// It returns nil unless at least two clauses carry an action verb. Parts
// without a verb stay attached to the clause before them.
func SplitCompound(sentence string) []Clause {
	parts := clauseConnector.Split(strings.TrimSpace(sentence), -1)
	if len(parts) < 2 {
		return nil
	}

	var clauses []Clause
	pending := ""
	for _, part := range parts {
		part = trimClause(part)
		if part == "" {
			continue
		}
		if !actionVerbPattern.MatchString(part) {
			switch {
			case len(clauses) > 0:
				clauses[len(clauses)-1].Text += " and " + part
			case pending != "":
				pending += " and " + part
			default:
				pending = part
			}
			continue
		}
		if pending != "" {
			part = pending + " and " + part
			pending = ""
		}
		clauses = append(clauses, Clause{Text: part, Owner: ownerFromClause(part)})
	}
	if len(clauses) < 2 {
		return nil
	}
	return clauses
}
