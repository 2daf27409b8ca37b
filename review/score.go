package review

import (
	"strings"
	"unicode/utf16"
)

const (
	baseScore     = 50
	lengthBonus   = 20
	keywordBonus  = 10
	maxScore      = 100
	longReviewLen = 1000
)

var scoreKeywords = []string{"requirements", "timeline", "metrics"}

// QualityScore is a coarse heuristic over the final review text: 50, plus 20
// past 1000 characters, plus 10 for each of the keywords, capped at 100.
// Length is counted in UTF-16 code units and keywords are case-sensitive.
func QualityScore(text string) int {
	score := baseScore
	if utf16Len(text) > longReviewLen {
		score += lengthBonus
	}
	for _, kw := range scoreKeywords {
		if strings.Contains(text, kw) {
			score += keywordBonus
		}
	}
	return min(score, maxScore)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
