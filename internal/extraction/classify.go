package extraction

var (
	actionLowPattern  = wordsPattern(actionLowWords)
	actionHighPattern = wordsPattern(actionHighWords)
)

// ActionPriority grades an action as high, medium or low.
func ActionPriority(text string) string {
	switch {
	case actionLowPattern.MatchString(text):
		return PriorityLow
	case actionHighPattern.MatchString(text):
		return PriorityHigh
	}
	return PriorityMedium
}

// RiskPriority grades a risk as HIGH, MEDIUM or LOW.
func RiskPriority(text string) string {
	switch {
	case riskHighPattern.MatchString(text):
		return RiskHigh
	case riskLowPattern.MatchString(text):
		return RiskLow
	}
	return RiskMedium
}

// Categorize picks the risk category with the most distinct keyword hits.
// Ties go to the category declared first; no hits means Other.
func Categorize(text string) string {
	best, bestHits := CategoryOther, 0
	for i, c := range riskCategories {
		hits := 0
		for _, re := range riskCategoryPatterns[i] {
			if re.MatchString(text) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c.name, hits
		}
	}
	return best
}

func prioritySeverity(p string) int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}
