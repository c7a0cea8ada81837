package eval

import (
	"regexp"
	"strings"
)

// summaryTokenRe counts hyphenated words ("65-year-old"), contractions
// ("don't") and plain words/numbers as single tokens each. ASCII-anchored and
// locale-independent so counts are reproducible across runs and hosts.
var summaryTokenRe = regexp.MustCompile(`\b\w+(?:-\w+)+\b|\b\w+'\w+\b|\b\w+\b`)

// CountTokens returns the deterministic token count used for summary
// succinctness scoring.
func CountTokens(text string) int {
	return len(summaryTokenRe.FindAllString(strings.ToLower(text), -1))
}
